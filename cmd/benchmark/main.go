package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/cheggaaa/pb/v3"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"laptopprice/pkg/client"
)

type args struct {
	Addr        string `help:"server address" arg:"-a"`
	Requests    int    `help:"number of predict requests" arg:"-n"`
	Concurrency int    `help:"parallel workers" arg:"-c"`
	Distinct    int    `help:"distinct laptops to draw from; small values exercise the cache" arg:"-d"`
}

func (args) Description() string {
	return "load generator for /api/predict"
}

type laptop struct {
	brand          string
	screen, hd, rm float64
}

func main() {
	a := args{Addr: "localhost:8080", Requests: 5000, Concurrency: 8, Distinct: 200}
	arg.MustParse(&a)
	if a.Concurrency < 1 {
		a.Concurrency = 1
	}
	if a.Distinct < 1 {
		a.Distinct = 1
	}

	cli, err := client.Dial(a.Addr)
	if err != nil {
		log.Fatalf("Connect failed: %v", err)
	}
	defer cli.Close()

	ctx := context.Background()
	brands, err := cli.Brands(ctx)
	if err != nil || len(brands) == 0 {
		log.Fatalf("No brands from server: %v", err)
	}
	laptops := makeLaptops(brands, a.Distinct)

	fmt.Printf("Predict Benchmark (N=%s, workers=%d, distinct=%d)\n", humanize.Comma(int64(a.Requests)), a.Concurrency, a.Distinct)
	fmt.Println("---------------------------------------------------")

	var failed int64
	bar := pb.StartNew(a.Requests)
	jobs := make(chan laptop)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < a.Concurrency; w++ {
		g.Go(func() error {
			for s := range jobs {
				if _, err := cli.Predict(gctx, s.brand, s.screen, s.hd, s.rm, true, true); err != nil {
					atomic.AddInt64(&failed, 1)
				}
				bar.Increment()
			}
			return nil
		})
	}

	start := time.Now()
	for i := 0; i < a.Requests; i++ {
		jobs <- laptops[i%len(laptops)]
	}
	close(jobs)
	g.Wait()
	elapsed := time.Since(start)
	bar.Finish()

	fmt.Printf("   Time: %v | QPS: %s | Failed: %s\n", elapsed,
		humanize.Comma(int64(float64(a.Requests)/elapsed.Seconds())), humanize.Comma(failed))

	if stats, err := cli.Stats(ctx); err == nil {
		fmt.Printf("   Server: %v\n", stats["predictions"])
	}
}

func makeLaptops(brands []string, n int) []laptop {
	r := rand.New(rand.NewSource(42))
	screens := []float64{11.6, 13.3, 14, 15.6, 16, 17.3}
	disks := []float64{128, 256, 512, 1000, 2000}
	rams := []float64{4, 8, 16, 32}
	out := make([]laptop, n)
	for i := range out {
		out[i] = laptop{
			brand:  brands[r.Intn(len(brands))],
			screen: screens[r.Intn(len(screens))],
			hd:     disks[r.Intn(len(disks))],
			rm:     rams[r.Intn(len(rams))],
		}
	}
	return out
}
