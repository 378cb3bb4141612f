package cli

import (
	"bufio"
	"crypto/ecdsa"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/term"
)

const (
	envPrivateKey       = "TICKETMINT_PRIVATE_KEY"
	envKeystorePassword = "TICKETMINT_KEYSTORE_PASSWORD"
)

// loadKeys decrypts every keystore file and appends the key from
// TICKETMINT_PRIVATE_KEY when set. No keys is not an error.
func loadKeys(paths []string, prompt io.Writer) ([]*ecdsa.PrivateKey, error) {
	keys := make([]*ecdsa.PrivateKey, 0, len(paths)+1)
	for _, path := range paths {
		key, err := decryptKeystore(path, prompt)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	if v := strings.TrimSpace(os.Getenv(envPrivateKey)); v != "" {
		key, err := parsePrivateKey(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", envPrivateKey, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimSpace(hexKey)
	hexKey = strings.TrimPrefix(strings.TrimPrefix(hexKey, "0x"), "0X")
	return crypto.HexToECDSA(hexKey)
}

func decryptKeystore(path string, prompt io.Writer) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	passphrase, err := readPassphrase(path, prompt)
	if err != nil {
		return nil, err
	}

	key, err := keystore.DecryptKey(data, passphrase)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt %s: %w", filepath.Base(path), err)
	}
	return key.PrivateKey, nil
}

// readPassphrase takes the passphrase from the environment, or prompts for it
// without echo when stdin is a terminal.
func readPassphrase(path string, prompt io.Writer) (string, error) {
	if v, ok := os.LookupEnv(envKeystorePassword); ok {
		return v, nil
	}

	fmt.Fprintf(prompt, "Passphrase for %s: ", filepath.Base(path))

	stdinFd := int(os.Stdin.Fd())
	if term.IsTerminal(stdinFd) {
		b, err := term.ReadPassword(stdinFd)
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		return string(b), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
