// Command gen-keys prints a freshly generated VAPID identity and database
// encryption key to stdout as KEY=value lines, ready to drop into an
// environment file.
package main

import (
	"fmt"
	"os"

	"github.com/arata-notify/webpush/b64"
	"github.com/arata-notify/webpush/es256"
	"github.com/arata-notify/webpush/primitive"
)

func run() (string, string, string, error) {
	identity, err := es256.Generate()
	if err != nil {
		return "", "", "", err
	}
	dbKey, err := primitive.GenSalt(16)
	if err != nil {
		return "", "", "", err
	}
	return b64.Encode(identity.Public().ToBytes()), b64.Encode(identity.PrivateBytes()), b64.Encode(dbKey), nil
}

func main() {
	pubKey, privKey, dbKey, err := run()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("VAPID_PUBLIC_KEY=%s\n", pubKey)
	fmt.Printf("VAPID_PRIVATE_KEY=%s\n", privKey)
	fmt.Printf("DATABASE_ENCRYPTION_KEY=%s\n", dbKey)
}
