package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

const checksumSeparator = "###"

// Sign computes the X-VERIFY value the gateway expects:
// hex(sha256(payload + path + secret)) + "###" + keyIndex.
func Sign(payload, path, secret string, keyIndex int) string {
	sum := sha256.Sum256([]byte(payload + path + secret))
	return hex.EncodeToString(sum[:]) + checksumSeparator + strconv.Itoa(keyIndex)
}
