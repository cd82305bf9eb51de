package main

import (
	"crypto/x509"
	"encoding/base64"
	"flag"
	"fmt"
	"os"

	"workseald/internal/domain"
	"workseald/internal/infra/crypto"
)

func runKeygen(args []string) int {
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	var curveID string
	var outPath string
	fs.StringVar(&curveID, "curve", string(domain.DefaultCurve), "elliptic curve name")
	fs.StringVar(&outPath, "out", "", "write the key here instead of stdout")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	curve, err := domain.ParseCurve(curveID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse curve: %v\n", err)
		return 1
	}
	pair, err := crypto.GenerateKeyPair(curve)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		return 1
	}
	der, err := x509.MarshalECPrivateKey(pair.Private)
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode key: %v\n", err)
		return 1
	}
	encoded := base64.StdEncoding.EncodeToString(der)

	if outPath == "" {
		fmt.Println(encoded)
		return 0
	}
	if err := os.WriteFile(outPath, []byte(encoded+"\n"), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "write key: %v\n", err)
		return 1
	}
	return 0
}
