package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/eon-protocol/eonzk/storage"
)

// usage: get_proof <artifact dir> <base|recursive> <circuit type> <instance>
// prints the proof slot hex encoded and whether it was issued under the
// stored key of its kind
func main() {
	if len(os.Args) != 5 {
		log.Fatalln("usage:", os.Args[0], "<artifact dir>", "<base|recursive>", "<circuit type>", "<instance>")
	}
	code, err := strconv.ParseUint(os.Args[3], 10, 8)
	if err != nil {
		log.Fatalln(err)
	}
	index, err := strconv.ParseUint(os.Args[4], 10, 32)
	if err != nil {
		log.Fatalln(err)
	}
	kind := storage.Key{CircuitType: uint8(code)}
	switch os.Args[2] {
	case "base":
	case "recursive":
		kind.IsRecursive = true
	default:
		log.Fatalln("layer must be base or recursive, not", os.Args[2])
	}
	key := kind.Instance(int(index))
	store, err := storage.NewFileStore(os.Args[1])
	if err != nil {
		log.Fatalln(err)
	}
	a, err := store.Get(key)
	if err != nil {
		log.Fatalln(err)
	}
	if a.Proof == nil {
		log.Fatalln("no proof stored for", key)
	}
	vk, err := storage.GetVk(store, kind)
	if err != nil {
		log.Fatalln(err)
	}
	enc := hex.NewEncoder(os.Stdout)
	if _, err := a.Proof.WriteTo(enc); err != nil {
		log.Fatalln(err)
	}
	fmt.Println()
	fmt.Println("public input:", a.Proof.PublicInput[0].String(), a.Proof.PublicInput[1].String())
	fmt.Println("issued under", vk, ":", a.Proof.IsFor(vk))
}
