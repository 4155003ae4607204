package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alexflint/go-arg"

	"laptopprice/pkg/client"
)

const Prompt = "laptop> "

type args struct {
	Addr string `help:"server address" arg:"-a"`
}

func (args) Description() string {
	return "interactive client for the laptop price server"
}

func main() {
	a := args{Addr: "localhost:8080"}
	arg.MustParse(&a)

	fmt.Printf("Laptop Price CLI (Target: %s)\n", a.Addr)
	fmt.Println("Connecting...")

	cli, err := client.Dial(a.Addr)
	if err != nil {
		fmt.Printf("Connection failed: %v\n", err)
		fmt.Println("Tip: Ensure the server is running (e.g. go run ./cmd/server).")
		return
	}
	defer cli.Close()
	fmt.Println("Connected! Type 'help' for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print(Prompt)
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "predict", "p":
			handlePredict(cli, parts)
		case "brands":
			handleBrands(cli)
		case "describe":
			handleDescribe(cli)
		case "range":
			handleRange(cli, parts)
		case "select":
			handleQuery(cli, line)
		case "stats":
			handleStats(cli)
		case "help":
			printHelp()
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Printf("Unknown command: '%s'. Type 'help'.\n", cmd)
		}
	}
}

func handlePredict(cli *client.Client, parts []string) {
	if len(parts) < 5 {
		fmt.Println("Usage: predict <brand> <screen_size> <harddisk> <ram> [knn|rf|both]")
		return
	}
	nums := make([]float64, 3)
	for i, s := range parts[2:5] {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			fmt.Printf("Error: %q is not a number\n", s)
			return
		}
		nums[i] = f
	}
	useKNN, useRF := true, true
	if len(parts) > 5 {
		switch strings.ToLower(parts[5]) {
		case "knn":
			useRF = false
		case "rf", "random_forest":
			useKNN = false
		case "none":
			useKNN, useRF = false, false
		}
	}

	start := time.Now()
	p, err := cli.Predict(context.Background(), parts[1], nums[0], nums[1], nums[2], useKNN, useRF)
	duration := time.Since(start)

	switch {
	case errors.Is(err, client.ErrNoSelection):
		fmt.Println(client.ErrNoSelection)
	case err != nil:
		fmt.Printf("Error: %v\n", err)
	default:
		fmt.Printf("%s (%v)\n", p.Message, duration)
		for _, o := range p.Outputs {
			fmt.Printf("  %-14s %.2f\n", o.Model, o.Price)
		}
	}
}

func handleBrands(cli *client.Client) {
	brands, err := cli.Brands(context.Background())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Println(strings.Join(brands, ", "))
}

func handleDescribe(cli *client.Client) {
	rows, err := cli.Describe(context.Background())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	fmt.Printf("%-12s %6s %10s %10s %10s %10s\n", "column", "count", "mean", "std", "min", "max")
	for _, r := range rows {
		fmt.Printf("%-12v %6v %10.2f %10.2f %10.2f %10.2f\n",
			r["column"], r["count"], num(r["mean"]), num(r["std"]), num(r["min"]), num(r["max"]))
	}
}

func handleRange(cli *client.Client, parts []string) {
	if len(parts) < 3 {
		fmt.Println("Usage: range <min_price> <max_price>")
		return
	}
	lo, err1 := strconv.ParseFloat(parts[1], 64)
	hi, err2 := strconv.ParseFloat(parts[2], 64)
	if err1 != nil || err2 != nil {
		fmt.Println("Error: Prices must be numbers")
		return
	}
	start := time.Now()
	rows, err := cli.Laptops(context.Background(), lo, hi)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printRows(rows, time.Since(start))
}

func handleQuery(cli *client.Client, sql string) {
	start := time.Now()
	rows, err := cli.Query(context.Background(), sql)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	printRows(rows, time.Since(start))
}

func handleStats(cli *client.Client) {
	stats, err := cli.Stats(context.Background())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	for k, v := range stats {
		fmt.Printf("  %s: %v\n", k, v)
	}
}

func printRows(rows []map[string]interface{}, d time.Duration) {
	fmt.Printf("Found %d laptops (%v):\n", len(rows), d)
	for i, r := range rows {
		if i >= 20 {
			fmt.Printf("... and %d more\n", len(rows)-20)
			break
		}
		fmt.Printf("  %-10v %6v\" %6vGB disk %4vGB ram  $%v\n", r["brand"], r["screen_size"], r["harddisk"], r["ram"], r["price"])
	}
}

func num(v interface{}) float64 {
	f, _ := v.(float64)
	return f
}

func printHelp() {
	fmt.Println(`
Commands:
  predict <brand> <screen> <disk> <ram> [knn|rf|both|none]   Estimate a price
  brands                                                Known brands
  describe                                              Numeric summary of the dataset
  range <min> <max>                                     Laptops within a price range
  select * from laptops [where <col> <op> <n>] [limit n]  Query the dataset
  stats                                                 Server counters
  exit                                                  Exit CLI
	`)
}
