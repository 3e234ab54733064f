package witness

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	goethkzg "github.com/crate-crypto/go-eth-kzg"
	"github.com/eon-protocol/eonzk/circuits/definitions"
	"github.com/eon-protocol/eonzk/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	BLOB_FIELD_ELEMENTS       = 4096
	BYTES_PER_BLOB_ELEMENT    = 31
	BLOB_VERSIONED_HASH_BYTE  = 0x01
	BYTES_PER_SERIALIZED_WORD = 32
)

var getKZGContext = sync.OnceValues(goethkzg.NewContext4096Secure)

// BlobWitness is one blob worth of pubdata and its KZG opening.
type BlobWitness struct {
	Data          []byte
	Commitment    goethkzg.KZGCommitment
	Proof         goethkzg.KZGProof
	VersionedHash common.Hash
}

type EIP4844FSM struct {
	BlobsDone      uint32
	BytesProcessed uint32
	RollingHash    common.Hash
}

func (me EIP4844FSM) Encoding() []fr.Element {
	return types.Enc{}.U64(uint64(me.BlobsDone)).U64(uint64(me.BytesProcessed)).Bytes32(me.RollingHash)
}

type EIP4844Input struct {
	PubdataHash common.Hash
	NumBytes    uint32
}

func (me EIP4844Input) Encoding() []fr.Element {
	return types.Enc{}.Bytes32(me.PubdataHash).U64(uint64(me.NumBytes))
}

type EIP4844Output struct {
	NumBlobs              uint32
	VersionedHashesDigest common.Hash
}

func (me EIP4844Output) Encoding() []fr.Element {
	return types.Enc{}.U64(uint64(me.NumBlobs)).Bytes32(me.VersionedHashesDigest)
}

type EIP4844Instance = CircuitInstance[EIP4844FSM, EIP4844Input, EIP4844Output, BlobWitness]

// SerializeBlob places 31 bytes of data in each field element, leading byte
// zero so every element is canonical.
func SerializeBlob(data []byte) *goethkzg.Blob {
	if len(data) > BLOB_FIELD_ELEMENTS*BYTES_PER_BLOB_ELEMENT {
		panic(fmt.Sprintf("%d bytes do not fit a blob", len(data)))
	}
	var blob goethkzg.Blob
	for i := 0; i*BYTES_PER_BLOB_ELEMENT < len(data); i++ {
		chunk := data[i*BYTES_PER_BLOB_ELEMENT : min((i+1)*BYTES_PER_BLOB_ELEMENT, len(data))]
		copy(blob[i*BYTES_PER_SERIALIZED_WORD+1:], chunk)
	}
	return &blob
}

func VersionedHash(commitment goethkzg.KZGCommitment) common.Hash {
	ret := common.Hash(sha256.Sum256(commitment[:]))
	ret[0] = BLOB_VERSIONED_HASH_BYTE
	return ret
}

// CommitBlob computes the KZG commitment, the blob proof and the versioned
// hash of one chunk of pubdata.
func CommitBlob(data []byte) (BlobWitness, error) {
	ctx, err := getKZGContext()
	if err != nil {
		return BlobWitness{}, fmt.Errorf("kzg context: %w", err)
	}
	blob := SerializeBlob(data)
	commitment, err := ctx.BlobToKZGCommitment(blob, 0)
	if err != nil {
		return BlobWitness{}, fmt.Errorf("blob commitment: %w", err)
	}
	proof, err := ctx.ComputeBlobKZGProof(blob, commitment, 0)
	if err != nil {
		return BlobWitness{}, fmt.Errorf("blob proof: %w", err)
	}
	return BlobWitness{Data: data, Commitment: commitment, Proof: proof, VersionedHash: VersionedHash(commitment)}, nil
}

// BuildEIP4844Repack cuts the pubdata into blobs of elementsPerBlob field
// elements, one instance per blob. Exceeding maxBlobs aborts the block.
func BuildEIP4844Repack(pubdata []byte, elementsPerBlob, maxBlobs int) (MakerResults, []BaseLayerCircuit, []common.Hash, error) {
	maker := NewCircuitMaker[EIP4844FSM, EIP4844Input, EIP4844Output, BlobWitness](definitions.EIP4844Repack, elementsPerBlob)
	if elementsPerBlob > BLOB_FIELD_ELEMENTS {
		panic(fmt.Sprintf("%d elements per blob exceed %d", elementsPerBlob, BLOB_FIELD_ELEMENTS))
	}
	if len(pubdata) == 0 {
		return maker.IntoResults(), nil, nil, nil
	}
	chunks := Chunk(pubdata, elementsPerBlob*BYTES_PER_BLOB_ELEMENT)
	if len(chunks) > maxBlobs {
		panic(fmt.Sprintf("%d bytes of pubdata need %d blobs, at most %d allowed", len(pubdata), len(chunks), maxBlobs))
	}

	witnesses := make([]BlobWitness, len(chunks))
	hashes := make([]common.Hash, len(chunks))
	rolling := make([]common.Hash, len(chunks)+1)
	for i, chunk := range chunks {
		w, err := CommitBlob(chunk)
		if err != nil {
			return MakerResults{}, nil, nil, fmt.Errorf("blob %d: %w", i, err)
		}
		witnesses[i], hashes[i] = w, w.VersionedHash
		rolling[i+1] = crypto.Keccak256Hash(rolling[i][:], w.VersionedHash[:])
	}
	fsmAt := func(boundary int) EIP4844FSM {
		return EIP4844FSM{
			BlobsDone:      uint32(boundary),
			BytesProcessed: uint32(min(boundary*elementsPerBlob*BYTES_PER_BLOB_ELEMENT, len(pubdata))),
			RollingHash:    rolling[boundary],
		}
	}
	in := EIP4844Input{PubdataHash: crypto.Keccak256Hash(pubdata), NumBytes: uint32(len(pubdata))}
	out := EIP4844Output{NumBlobs: uint32(len(chunks)), VersionedHashesDigest: rolling[len(chunks)]}
	forms := threadClosedForms(len(chunks), in, out, fsmAt)
	circuits := makeInstances(maker, forms, witnesses)
	return maker.IntoResults(), circuits, hashes, nil
}
