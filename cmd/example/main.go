package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"laptopprice/pkg/client"
)

func main() {
	fmt.Println("Connecting to laptop price server...")
	cli, err := client.Dial("localhost:8080")
	if err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	defer cli.Close()
	ctx := context.Background()

	brands, err := cli.Brands(ctx)
	if err != nil {
		log.Fatalf("Brands failed: %v", err)
	}
	fmt.Printf("Known brands: %v\n", brands)

	fmt.Println("Predicting: Dell, 14\", 1000GB disk, 8GB ram (both models)")
	start := time.Now()
	p, err := cli.Predict(ctx, "Dell", 14, 1000, 8, true, true)
	if err != nil {
		log.Fatalf("Predict failed: %v", err)
	}
	fmt.Printf("%s (in %v)\n", p.Message, time.Since(start))

	_, err = cli.Predict(ctx, "Dell", 14, 1000, 8, false, false)
	if errors.Is(err, client.ErrNoSelection) {
		fmt.Printf("No model selected: %v\n", err)
	}
}
