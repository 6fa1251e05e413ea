// Package main provides an offline CLI for university key generation,
// record verification and authority reference checks. The reference check
// uses the dev MoE key unless -key is given.
package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"gradverify/internal/credential/authority"
	"gradverify/internal/credential/models"
	"gradverify/internal/credential/payload"
	"gradverify/internal/credential/signature"
)

const (
	// matches config.go when MOE_SIGNING_KEY is not set
	devMoESigningKey = "dev-moe-signing-key-change-in-production"
	defaultKeyBits   = 2048
)

type keygenOutput struct {
	PrivateKey string `json:"private_key"`
	PublicKey  string `json:"public_key"`
	Bits       int    `json:"bits"`
}

// exportedRecord is the record shape served by GET /universities/{university}/graduates.
type exportedRecord struct {
	ID                 string              `json:"id"`
	University         string              `json:"university"`
	Year               string              `json:"year"`
	Data               models.GraduateData `json:"data"`
	AuthorityReference string              `json:"authority_reference"`
	Signature          string              `json:"signature"`
}

type verifyOutput struct {
	RecordID string `json:"record_id"`
	Valid    bool   `json:"valid"`
	Reason   string `json:"reason,omitempty"`
	Payload  string `json:"payload,omitempty"`
}

func main() {
	keygenCmd := flag.NewFlagSet("keygen", flag.ExitOnError)
	verifyCmd := flag.NewFlagSet("verify", flag.ExitOnError)
	referenceCmd := flag.NewFlagSet("reference", flag.ExitOnError)

	keygenBits := keygenCmd.Int("bits", defaultKeyBits, "RSA modulus size")
	keygenOut := keygenCmd.String("out", "", "Write key files with this prefix instead of printing JSON")

	verifyRecord := verifyCmd.String("record", "-", "Record JSON file, - for stdin")
	verifyKey := verifyCmd.String("public-key", "", "University public key PEM file")
	verifyPayload := verifyCmd.Bool("show-payload", false, "Include the canonical payload in the output")

	referenceToken := referenceCmd.String("ref", "", "Authority reference to check")
	referenceUniversity := referenceCmd.String("university", "", "University the reference should cover")
	referenceYear := referenceCmd.String("year", "", "Graduation year the reference should cover")
	referenceKey := referenceCmd.String("key", devMoESigningKey, "MoE signing key")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		keygenCmd.Parse(os.Args[2:])
		err = runKeygen(*keygenBits, *keygenOut)
	case "verify":
		verifyCmd.Parse(os.Args[2:])
		err = runVerify(*verifyRecord, *verifyKey, *verifyPayload)
	case "reference":
		referenceCmd.Parse(os.Args[2:])
		err = runReference(*referenceToken, *referenceUniversity, *referenceYear, *referenceKey)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gradctl - offline tooling for graduate credentials

Usage:
  gradctl <command> [options]

Commands:
  keygen      Generate a university RSA key pair
  verify      Verify an exported graduate record against a public key
  reference   Check an MoE authority reference

Examples:
  gradctl keygen -bits 3072 -out mit-2024
  gradctl verify -record alice.json -public-key mit-2024.pub.pem
  gradctl reference -ref "$REF" -university MIT -year 2024

Run 'gradctl <command> -h' for command options.`)
}

func runKeygen(bits int, out string) error {
	codec := signature.New(signature.WithKeyBits(bits))
	priv, pub, err := codec.GenerateKeyPair()
	if err != nil {
		return err
	}
	privPEM, err := codec.ExportPrivate(priv)
	if err != nil {
		return err
	}
	pubPEM, err := codec.ExportPublic(pub)
	if err != nil {
		return err
	}

	if out != "" {
		if err := os.WriteFile(out+".pem", privPEM, 0o600); err != nil {
			return fmt.Errorf("write private key: %w", err)
		}
		if err := os.WriteFile(out+".pub.pem", pubPEM, 0o644); err != nil {
			return fmt.Errorf("write public key: %w", err)
		}
		fmt.Printf("Wrote %s.pem and %s.pub.pem\n", out, out)
		return nil
	}
	return printJSON(keygenOutput{PrivateKey: string(privPEM), PublicKey: string(pubPEM), Bits: bits})
}

func runVerify(recordPath, keyPath string, showPayload bool) error {
	if keyPath == "" {
		return fmt.Errorf("-public-key is required")
	}
	raw, err := readInput(recordPath)
	if err != nil {
		return err
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return err
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return fmt.Errorf("read public key: %w", err)
	}
	out, err := verifyRecordAgainst(signature.New(), rec, keyPEM)
	if err != nil {
		return err
	}
	if !showPayload {
		out.Payload = ""
	}
	if err := printJSON(out); err != nil {
		return err
	}
	if !out.Valid {
		os.Exit(2)
	}
	return nil
}

func decodeRecord(raw []byte) (exportedRecord, error) {
	var rec exportedRecord
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return exportedRecord{}, fmt.Errorf("decode record: %w", err)
	}
	if rec.Data == nil || rec.AuthorityReference == "" || rec.Signature == "" {
		return exportedRecord{}, fmt.Errorf("record must carry data, authority_reference and signature")
	}
	return rec, nil
}

func verifyRecordAgainst(codec *signature.Codec, rec exportedRecord, keyPEM []byte) (verifyOutput, error) {
	out := verifyOutput{RecordID: rec.ID}
	pub, err := codec.ImportPublic(keyPEM)
	if err != nil {
		return out, fmt.Errorf("import public key: %w", err)
	}
	sig, err := base64.StdEncoding.DecodeString(rec.Signature)
	if err != nil {
		return out, fmt.Errorf("decode signature: %w", err)
	}
	msg, err := payload.Build(rec.Data, models.AuthorityReference(rec.AuthorityReference))
	if err != nil {
		out.Reason = "payload_unserializable"
		return out, nil
	}
	out.Payload = string(msg)
	ok, err := codec.Verify(pub, msg, sig)
	if err != nil {
		out.Reason = "signature_malformed"
		return out, nil
	}
	if !ok {
		out.Reason = "signature_mismatch"
		return out, nil
	}
	out.Valid = true
	return out, nil
}

func runReference(ref, university, year, key string) error {
	if ref == "" || university == "" || year == "" {
		return fmt.Errorf("-ref, -university and -year are required")
	}
	issuer, err := authority.NewIssuer(key)
	if err != nil {
		return err
	}
	if err := issuer.Validate(models.AuthorityReference(strings.TrimSpace(ref)), university, year); err != nil {
		return err
	}
	fmt.Printf("Reference covers %s %s\n", university, year)
	return nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
