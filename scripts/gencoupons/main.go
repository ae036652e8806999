package main

import (
	"compress/gzip"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// gencoupons writes a sample gzip coupon registry, one code per line.
// Lines starting with # are comments.
func main() {
	out := flag.String("out", "data/coupons/active.gz", "registry file to write")
	flag.Parse()

	codes := []string{
		"# sample registry for local development",
		"WELCOME10",
		"SAVE20",
		"FREESHIP",
		"SUMMER2026",
		"",
		"# seasonal",
		"DIWALI2026",
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	if err := createCouponFile(*out, codes); err != nil {
		log.Fatalf("Failed to create %s: %v", *out, err)
	}

	fmt.Printf("Created %s\n", *out)
	fmt.Println("Codes are matched case-insensitively, so welcome10 is accepted too.")
}

func createCouponFile(filePath string, lines []string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	for _, line := range lines {
		if _, err := fmt.Fprintf(gzipWriter, "%s\n", line); err != nil {
			return fmt.Errorf("failed to write coupon: %w", err)
		}
	}

	return nil
}
