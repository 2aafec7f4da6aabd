package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"library/internal/qr"
)

var qrCmd = &cobra.Command{
	Use:   "qr",
	Short: "Encode or decode library QR codes",
}

var qrEncodeCmd = &cobra.Command{
	Use:   "encode [user|book] [id]",
	Short: "Print the PNG data URI for a user or book code",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var text string
		switch qr.Kind(args[0]) {
		case qr.KindUser:
			text = qr.UserMarker(args[1])
		case qr.KindBook:
			text = qr.BookMarker(args[1])
		default:
			return fmt.Errorf("unknown kind %q: want user or book", args[0])
		}
		uri := qr.Encode(text)
		if uri == "" {
			return fmt.Errorf("could not render QR code for %q", text)
		}
		fmt.Fprintln(cmd.OutOrStdout(), uri)
		return nil
	},
}

var qrDecodeCmd = &cobra.Command{
	Use:   "decode [text]",
	Short: "Parse scanned QR text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload := qr.Decode(args[0])
		if payload == nil {
			return fmt.Errorf("%q is not a library QR code", args[0])
		}
		return json.NewEncoder(cmd.OutOrStdout()).Encode(payload)
	},
}

func init() {
	qrCmd.AddCommand(qrEncodeCmd)
	qrCmd.AddCommand(qrDecodeCmd)
}
