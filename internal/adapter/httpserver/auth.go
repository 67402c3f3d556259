package httpserver

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"

	"github.com/fairyhunter13/call-campaign-orchestrator/internal/config"
)

// Argon2Params defines parameters for Argon2id password hashing
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

var defaultArgon2Params = Argon2Params{
	Memory:      64 * 1024, // 64 MB
	Iterations:  3,
	Parallelism: 2,
	SaltLen:     16,
	KeyLen:      32,
}

// HashPassword creates an Argon2id hash of the password
func HashPassword(password string, params Argon2Params) (string, error) {
	salt := make([]byte, params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(password), salt, params.Iterations, params.Memory, params.Parallelism, params.KeyLen)

	// Format: argon2id$iterations$memory$parallelism$salt$hash (base64 encoded)
	encoded := fmt.Sprintf("argon2id$%d$%d$%d$%s$%s",
		params.Iterations,
		params.Memory,
		params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	return encoded, nil
}

// VerifyPassword verifies a password against its Argon2id hash
func VerifyPassword(password, encodedHash string) bool {
	// Expected format: argon2id$iterations$memory$parallelism$salt$hash (base64 raw std for salt/hash)
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[0] != "argon2id" {
		return false
	}
	iters, err1 := parseUint32(parts[1])
	mem, err2 := parseUint32(parts[2])
	par64, err3 := parseUint32(parts[3])
	if err1 != nil || err2 != nil || err3 != nil {
		return false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}

	// Clamp parallelism to uint8 range to avoid overflow
	var par uint8
	if par64 > math.MaxUint8 {
		par = math.MaxUint8
	} else {
		par = uint8(par64)
	}
	actualHash := argon2.IDKey([]byte(password), salt, iters, mem, par, defaultArgon2Params.KeyLen)
	return subtle.ConstantTimeCompare(actualHash, expectedHash) == 1
}

// TokenAuth enforces the static X-Auth-Token header on the API surface.
// Health, docs and admin paths are mounted outside this middleware. With
// AUTH_ENABLED=false (local development) the check is skipped.
func TokenAuth(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.AuthEnabled {
				next.ServeHTTP(w, r)
				return
			}
			got := r.Header.Get("X-Auth-Token")
			if got == "" {
				writeUnauthorized(w, "missing X-Auth-Token header")
				return
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(cfg.AuthToken)) != 1 {
				writeUnauthorized(w, "invalid auth token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminBasicAuth guards the admin surface with HTTP Basic credentials
// checked against the argon2id hash from the environment.
func AdminBasicAuth(cfg config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
				writeUnauthorized(w, "authentication required")
				return
			}
			userOK := subtle.ConstantTimeCompare([]byte(user), []byte(cfg.AdminUsername)) == 1
			passOK := VerifyPassword(pass, cfg.AdminPasswordHash)
			if !userOK || !passOK {
				w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
				writeUnauthorized(w, "invalid credentials")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// parseUint32 parses a decimal string into uint32; returns error on failure
func parseUint32(s string) (uint32, error) {
	x, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parse")
	}
	if x > math.MaxUint32 {
		return 0, fmt.Errorf("parse")
	}
	return uint32(x), nil
}
