package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestServeFlags(t *testing.T) {
	for _, name := range []string{"skip-migrations", "skip-kafka"} {
		if serveCmd.Flags().Lookup(name) == nil {
			t.Errorf("serve has no --%s flag", name)
		}
	}
	if migrateCmd.Flags().Lookup("steps") == nil {
		t.Error("migrate has no --steps flag")
	}
}

func TestQRDecodeCommand(t *testing.T) {
	var out bytes.Buffer
	qrDecodeCmd.SetOut(&out)
	t.Cleanup(func() { qrDecodeCmd.SetOut(nil) })

	if err := qrDecodeCmd.RunE(qrDecodeCmd, []string{"BOOK:b-42"}); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != `{"type":"book","id":"b-42"}` {
		t.Errorf("output = %s", got)
	}

	if err := qrDecodeCmd.RunE(qrDecodeCmd, []string{"hello"}); err == nil {
		t.Error("expected an error for non-library text")
	}
}

func TestQREncodeCommand_UnknownKind(t *testing.T) {
	if err := qrEncodeCmd.RunE(qrEncodeCmd, []string{"shelf", "1"}); err == nil {
		t.Error("expected an error for an unknown kind")
	}
}
