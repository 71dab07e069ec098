package configloader

import "github.com/yaklabco/perlparse/pkg/config"

// merge combines two configurations, with override taking precedence over base.
// The merge follows these rules:
//   - Scalar values: override overwrites base if override is non-zero
//   - Slices: override replaces base entirely if override is non-nil
//   - Pointers: override replaces base if non-nil
func merge(base, override *config.Config) *config.Config {
	if base == nil {
		return override.Clone()
	}
	if override == nil {
		return base.Clone()
	}

	result := base.Clone()

	if override.Format != "" {
		result.Format = override.Format
	}
	if override.LogLevel != "" {
		result.LogLevel = override.LogLevel
	}
	if override.Jobs != 0 {
		result.Jobs = override.Jobs
	}
	if override.Color != "" {
		result.Color = override.Color
	}
	if override.Debug {
		result.Debug = true
	}

	if override.Parser.MaxDepth != 0 {
		result.Parser.MaxDepth = override.Parser.MaxDepth
	}
	if override.Parser.MaxHeredocs != 0 {
		result.Parser.MaxHeredocs = override.Parser.MaxHeredocs
	}

	if override.Cache.MaxEntries != 0 {
		result.Cache.MaxEntries = override.Cache.MaxEntries
	}
	if override.Cache.TTL != 0 {
		result.Cache.TTL = override.Cache.TTL
	}
	if override.Cache.Shards != 0 {
		result.Cache.Shards = override.Cache.Shards
	}

	if override.Files.Extensions != nil {
		result.Files.Extensions = append([]string(nil), override.Files.Extensions...)
	}
	if override.Files.Include != nil {
		result.Files.Include = append([]string(nil), override.Files.Include...)
	}
	if override.Files.Exclude != nil {
		result.Files.Exclude = append([]string(nil), override.Files.Exclude...)
	}
	if override.Files.DetectShebang != nil {
		detect := *override.Files.DetectShebang
		result.Files.DetectShebang = &detect
	}

	return result
}

// MergeAll merges multiple configurations in order, with later configs taking precedence.
func MergeAll(configs ...*config.Config) *config.Config {
	if len(configs) == 0 {
		return nil
	}

	result := configs[0].Clone()
	for i := 1; i < len(configs); i++ {
		result = merge(result, configs[i])
	}
	return result
}
