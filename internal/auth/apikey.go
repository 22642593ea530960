package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Word lists for human-readable API key generation
var (
	// 4 prefixes (2 bits entropy)
	apiKeyPrefixes = []string{
		"vault", "cipher", "ledger", "relay",
	}

	// 128 adjectives (7 bits entropy each)
	apiKeyAdjectives = []string{
		"quantum", "neural", "atomic", "cosmic", "binary", "hybrid", "matrix", "vector",
		"digital", "linear", "optical", "thermal", "magnetic", "electric", "dynamic", "static",
		"mobile", "stable", "active", "passive", "direct", "inverse", "parallel", "serial",
		"rapid", "swift", "smooth", "sharp", "bright", "clear", "pure", "prime",
		"solid", "fluid", "dense", "light", "heavy", "strong", "robust", "secure",
		"smart", "quick", "fast", "slow", "high", "low", "wide", "narrow",
		"deep", "thin", "thick", "fine", "gross", "micro", "macro", "mini",
		"mega", "ultra", "super", "hyper", "meta", "proto", "pseudo", "quasi",
		"semi", "multi", "poly", "mono", "duo", "tri", "quad", "penta",
		"hexa", "octa", "deca", "kilo", "nano", "pico", "femto", "atto",
		"zeta", "yotta", "terra", "giga", "beta", "alpha", "omega", "sigma",
		"delta", "gamma", "theta", "lambda", "mu", "nu", "xi", "pi",
		"rho", "tau", "phi", "chi", "psi", "zen", "flux", "core",
		"edge", "node", "mesh", "grid", "cell", "unit", "disk", "chip",
		"code", "data", "byte", "word", "line", "loop", "tree", "heap",
		"hash", "key", "lock", "gate", "port", "path", "link", "zone",
	}

	// 128 nouns (7 bits entropy)
	apiKeyNouns = []string{
		"phoenix", "dragon", "griffin", "sphinx", "hydra", "kraken", "titan", "atlas",
		"orion", "vega", "nova", "star", "comet", "galaxy", "nebula", "pulsar",
		"quasar", "meteor", "planet", "moon", "sun", "earth", "mars", "venus",
		"jupiter", "saturn", "uranus", "neptune", "pluto", "asteroid", "cosmos", "void",
		"ocean", "river", "lake", "stream", "valley", "mountain", "peak", "ridge",
		"forest", "desert", "tundra", "prairie", "canyon", "crater", "island", "cape",
		"crystal", "diamond", "emerald", "ruby", "sapphire", "pearl", "amber", "opal",
		"silver", "gold", "copper", "iron", "steel", "bronze", "platinum", "titanium",
		"laser", "radar", "sonar", "prism", "lens", "mirror", "beacon", "signal",
		"wave", "pulse", "beam", "ray", "field", "force", "energy", "power",
		"circuit", "reactor", "engine", "motor", "turbine", "generator", "battery", "cell",
		"tower", "bridge", "tunnel", "dome", "arch", "pillar", "column", "beam",
		"sphere", "cube", "pyramid", "helix", "spiral", "ring", "disc", "blade",
		"shield", "armor", "sword", "lance", "bow", "arrow", "spear", "hammer",
		"anvil", "forge", "furnace", "crucible", "vessel", "chamber", "vault", "cache",
		"nexus", "portal", "gateway", "passage", "corridor", "channel", "conduit", "pipeline",
	}

	// 4 suffixes (2 bits entropy)
	apiKeySuffixes = []string{
		"one", "prime", "eleven", "max",
	}

	apiKeyHexPattern = regexp.MustCompile(`^[A-F0-9]{24}$`)
)

// GenerateAPIKey generates a human-readable API key for non-interactive
// transfer clients.
// Format: {prefix}-{adjective1}-{noun}-{adjective2}-{24-char-hex}-{suffix}
// Entropy breakdown: 2 + 7 + 7 + 7 + 96 + 2 = 121 bits
func GenerateAPIKey() (string, error) {
	randomBytes := make([]byte, 5)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	prefixIdx := int(randomBytes[0]) % len(apiKeyPrefixes)
	adj1Idx := int(randomBytes[1]) % len(apiKeyAdjectives)
	nounIdx := int(randomBytes[2]) % len(apiKeyNouns)
	adj2Idx := int(randomBytes[3]) % len(apiKeyAdjectives)
	suffixIdx := int(randomBytes[4]) % len(apiKeySuffixes)

	// 24 hex characters carry the bulk of the entropy (96 bits)
	hexBytes := make([]byte, 12)
	if _, err := rand.Read(hexBytes); err != nil {
		return "", fmt.Errorf("failed to generate hex component: %w", err)
	}
	hexComponent := strings.ToUpper(hex.EncodeToString(hexBytes))

	apiKey := fmt.Sprintf("%s-%s-%s-%s-%s-%s",
		apiKeyPrefixes[prefixIdx],
		apiKeyAdjectives[adj1Idx],
		apiKeyNouns[nounIdx],
		apiKeyAdjectives[adj2Idx],
		hexComponent,
		apiKeySuffixes[suffixIdx],
	)

	return apiKey, nil
}

// ValidateAPIKeyFormat reports whether a key matches the expected format:
// prefix-adj1-noun-adj2-hex-suffix. A format check is not an authentication
// check; it only lets the middleware reject garbage before a database hit.
func ValidateAPIKeyFormat(apiKey string) bool {
	parts := strings.Split(apiKey, "-")
	if len(parts) != 6 {
		return false
	}

	if !containsString(apiKeyPrefixes, parts[0]) {
		return false
	}
	if !containsString(apiKeyAdjectives, parts[1]) {
		return false
	}
	if !containsString(apiKeyNouns, parts[2]) {
		return false
	}
	if !containsString(apiKeyAdjectives, parts[3]) {
		return false
	}
	if !containsString(apiKeySuffixes, parts[5]) {
		return false
	}

	return apiKeyHexPattern.MatchString(parts[4])
}

// HashAPIKey hashes an API key for storage; only the hash is persisted
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
