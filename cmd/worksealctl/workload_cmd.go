package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"workseald/internal/config"
	"workseald/internal/domain"
	"workseald/internal/infra/crypto"
	"workseald/internal/infra/keys/soft"
	"workseald/internal/usecase"
)

func runEncrypt(args []string) int {
	fs := flag.NewFlagSet("encrypt", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var keyPath, region, workloadType, inPath, outPath string
	fs.StringVar(&keyPath, "key", "", "base64 service key file")
	fs.StringVar(&region, "region", "", "cloud region the workload runs in")
	fs.StringVar(&workloadType, "workload-type", "", "workload type label")
	fs.StringVar(&inPath, "in", "", "plaintext file")
	fs.StringVar(&outPath, "out", "", "write the package here instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if keyPath == "" || region == "" || workloadType == "" || inPath == "" {
		fs.Usage()
		return 1
	}

	hybrid, err := hybridFromKeyFile(keyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	data, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		return 1
	}

	pkg, err := hybrid.EncryptWorkload(context.Background(), data, region, workloadType)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encrypt: %v\n", err)
		return 1
	}
	payload, err := json.MarshalIndent(pkg, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode package: %v\n", err)
		return 1
	}
	return writeOutput(outPath, append(payload, '\n'))
}

func runDecrypt(args []string) int {
	fs := flag.NewFlagSet("decrypt", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var keyPath, inPath, outPath string
	fs.StringVar(&keyPath, "key", "", "base64 service key file")
	fs.StringVar(&inPath, "in", "", "package JSON file")
	fs.StringVar(&outPath, "out", "", "write the plaintext here instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if keyPath == "" || inPath == "" {
		fs.Usage()
		return 1
	}

	hybrid, err := hybridFromKeyFile(keyPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	payload, err := os.ReadFile(inPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read package: %v\n", err)
		return 1
	}
	var pkg domain.WorkloadPackage
	if err := json.Unmarshal(payload, &pkg); err != nil {
		fmt.Fprintf(os.Stderr, "decode package: %v\n", err)
		return 1
	}

	out, err := hybrid.DecryptWorkload(pkg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decrypt: %v\n", err)
		return 1
	}
	fmt.Fprintf(os.Stderr, "region=%s workload_type=%s\n", out.Provenance.CloudRegion, out.Provenance.WorkloadType)
	return writeOutput(outPath, out.Data)
}

func hybridFromKeyFile(path string) (*usecase.Hybrid, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	cfg := config.Config{
		ServicePrivateKeyBase64: strings.TrimSpace(string(raw)),
		AESKeyBits:              256,
	}
	manager, err := soft.NewManagerFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("load key: %w", err)
	}
	cipher, err := crypto.NewCipher(cfg.AESKeyBits)
	if err != nil {
		return nil, err
	}
	return usecase.NewHybrid(manager.Pair(), cipher), nil
}

func writeOutput(path string, data []byte) int {
	if path == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			fmt.Fprintf(os.Stderr, "write output: %v\n", err)
			return 1
		}
		return 0
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}
