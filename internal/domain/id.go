package domain

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// RecipeIDLength is the length of a hex recipe identifier.
const RecipeIDLength = 24

// NewRecipeID returns a 24-character hex identifier: four bytes of Unix
// seconds followed by eight random bytes, so identifiers sort by creation.
func NewRecipeID() string {
	var b [12]byte
	binary.BigEndian.PutUint32(b[:4], uint32(time.Now().Unix()))
	if _, err := rand.Read(b[4:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// IsRecipeID reports whether s has the identifier format.
func IsRecipeID(s string) bool {
	if len(s) != RecipeIDLength {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
