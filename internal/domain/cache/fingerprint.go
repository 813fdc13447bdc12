package cache

import (
	"sort"
	"strings"

	"github.com/GriffinCanCode/modshell/internal/shared/types"
	"github.com/GriffinCanCode/modshell/internal/shared/utils"
)

// Fingerprint hashes the identities and content hashes of a module set.
// The result does not depend on the order of modules.
func Fingerprint(modules []types.ModuleDescriptor) string {
	keys := make([]types.ModuleKey, len(modules))
	for i, m := range modules {
		keys[i] = m.Key()
	}
	return FingerprintKeys(keys)
}

// FingerprintKeys hashes already extracted module keys
func FingerprintKeys(keys []types.ModuleKey) string {
	sorted := sortKeys(keys)
	var sb strings.Builder
	for _, k := range sorted {
		sb.WriteString(k.String())
		sb.WriteByte('\n')
	}
	return utils.DefaultHasher().HashString(sb.String())
}

// sortKeys returns a copy of keys ordered by identity
func sortKeys(keys []types.ModuleKey) []types.ModuleKey {
	sorted := make([]types.ModuleKey, len(keys))
	copy(sorted, keys)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Identity != sorted[j].Identity {
			return sorted[i].Identity < sorted[j].Identity
		}
		return sorted[i].String() < sorted[j].String()
	})
	return sorted
}
