package main

import (
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/eon-protocol/eonzk/storage"
)

// usage: get_vk <artifact dir> <base|recursive> <circuit type>
// prints the key hex encoded, then its address
func main() {
	if len(os.Args) != 4 {
		log.Fatalln("usage:", os.Args[0], "<artifact dir>", "<base|recursive>", "<circuit type>")
	}
	code, err := strconv.ParseUint(os.Args[3], 10, 8)
	if err != nil {
		log.Fatalln(err)
	}
	key := storage.Key{CircuitType: uint8(code)}
	switch os.Args[2] {
	case "base":
	case "recursive":
		key.IsRecursive = true
	default:
		log.Fatalln("layer must be base or recursive, not", os.Args[2])
	}
	store, err := storage.NewFileStore(os.Args[1])
	if err != nil {
		log.Fatalln(err)
	}
	vk, err := storage.GetVk(store, key)
	if err != nil {
		log.Fatalln(err)
	}
	enc := hex.NewEncoder(os.Stdout)
	if _, err := vk.WriteTo(enc); err != nil {
		log.Fatalln(err)
	}
	fmt.Println()
	fmt.Println(vk.Address())
}
