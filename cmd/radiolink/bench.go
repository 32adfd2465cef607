package main

import (
	"fmt"
	"time"

	"github.com/pierrejay/radiolink-go/pkg/crypto"
	"github.com/pierrejay/radiolink-go/pkg/link"
	"github.com/pierrejay/radiolink-go/pkg/protocol"
)

// benchCommand measures the software side of the link: secure channel
// throughput and fragmentation rate. Radio airtime dominates on hardware;
// this answers whether the crypto ever becomes the bottleneck.
func benchCommand() {
	fmt.Println("=== radiolink bench ===")
	fmt.Println()

	benchSecureChannel()
	benchFragmentation()
}

func benchSecureChannel() {
	const iterations = 10000
	msg := crypto.MustSecureRandomBytes(1024)
	key := crypto.MustSecureRandomBytes(32)

	tx, _ := link.NewSecureChannel(key)
	rx, _ := link.NewSecureChannel(key)

	start := time.Now()
	var total int
	for i := 0; i < iterations; i++ {
		ct, err := tx.Encrypt(msg)
		if err != nil {
			fmt.Printf("encrypt failed: %v\n", err)
			return
		}
		pt, err := rx.Decrypt(ct)
		if err != nil {
			fmt.Printf("decrypt failed: %v\n", err)
			return
		}
		total += len(pt)
	}
	elapsed := time.Since(start)

	fmt.Printf("secure channel: %d x %dB round trips in %v (%.1f MB/s)\n",
		iterations, len(msg), elapsed.Round(time.Millisecond),
		float64(total)/elapsed.Seconds()/1e6)
}

func benchFragmentation() {
	const iterations = 10000
	msg := crypto.MustSecureRandomBytes(2048)

	start := time.Now()
	var packets int
	for i := 0; i < iterations; i++ {
		frag, err := protocol.NewFragmenter(msg)
		if err != nil {
			fmt.Printf("fragmenter failed: %v\n", err)
			return
		}
		for {
			if _, ok := frag.Next(); !ok {
				break
			}
			packets++
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("fragmentation: %d messages (%d packets) in %v (%.0f pkt/ms)\n",
		iterations, packets, elapsed.Round(time.Millisecond),
		float64(packets)/float64(elapsed.Milliseconds()))
}
