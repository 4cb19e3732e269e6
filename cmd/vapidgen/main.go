// Command vapidgen prints a fresh VAPID key pair in .env format.
package main

import (
	"fmt"
	"io"
	"os"

	webpushgo "github.com/SherClockHolmes/webpush-go"
)

func main() {
	if err := writeKeys(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "generate VAPID keys: %v\n", err)
		os.Exit(1)
	}
}

func writeKeys(w io.Writer) error {
	privateKey, publicKey, err := webpushgo.GenerateVAPIDKeys()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "VAPID_PUBLIC_KEY=%s\nVAPID_PRIVATE_KEY=%s\n", publicKey, privateKey)
	return err
}
