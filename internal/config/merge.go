package config

import "fmt"

// Merge combines two configs where overlay takes precedence over base.
//   - version: must agree if both declare it (non-zero); fatal error on mismatch
//   - scalar settings: a non-empty overlay value replaces the base value
//   - booleans: an overlay value that is set (true or false) replaces the base value
//   - installations: merge by name; same name in overlay replaces base entry entirely
func Merge(base, overlay *Config) (*Config, error) {
	if base == nil {
		return overlay, nil
	}
	if overlay == nil {
		return base, nil
	}

	result := &Config{}

	if err := mergeVersion(base.Version, overlay.Version, &result.Version); err != nil {
		return nil, err
	}

	result.Server = mergeString(base.Server, overlay.Server)
	result.User = mergeString(base.User, overlay.User)
	result.Password = Secret(mergeString(string(base.Password), string(overlay.Password)))
	result.PasswordEnv = mergeString(base.PasswordEnv, overlay.PasswordEnv)
	result.Repository = mergeString(base.Repository, overlay.Repository)
	result.Path = mergeString(base.Path, overlay.Path)
	result.SSL = mergeBool(base.SSL, overlay.SSL)

	result.Merge = mergeString(base.Merge, overlay.Merge)
	result.FileTime = mergeString(base.FileTime, overlay.FileTime)
	result.UseWorkingFolder = mergeBool(base.UseWorkingFolder, overlay.UseWorkingFolder)
	result.MakeWritable = mergeBool(base.MakeWritable, overlay.MakeWritable)
	result.Verbose = mergeBool(base.Verbose, overlay.Verbose)

	result.Vault = mergeString(base.Vault, overlay.Vault)
	result.Installations = mergeNamedInstallations(base.Installations, overlay.Installations)

	result.EnvExport = mergeString(base.EnvExport, overlay.EnvExport)
	result.History.TrackDeletes = mergeBool(base.History.TrackDeletes, overlay.History.TrackDeletes)
	result.Timeout = mergeString(base.Timeout, overlay.Timeout)

	return result, nil
}

// MergeAll merges multiple configs in order (lowest precedence first).
// Returns an error if any version mismatch is found.
func MergeAll(configs []*Config) (*Config, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("no configs to merge")
	}

	result := configs[0]
	for i := 1; i < len(configs); i++ {
		var err error
		result, err = Merge(result, configs[i])
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func mergeVersion(base, overlay int, out *int) error {
	switch {
	case base == 0 && overlay == 0:
		*out = 0 // neither declares; validation will catch this
	case base == 0:
		*out = overlay
	case overlay == 0:
		*out = base
	case base == overlay:
		*out = base
	default:
		return fmt.Errorf("config version mismatch: one layer declares version %d, another declares version %d — all config layers must agree on version", base, overlay)
	}
	return nil
}

func mergeString(base, overlay string) string {
	if overlay != "" {
		return overlay
	}
	return base
}

func mergeBool(base, overlay *bool) *bool {
	if overlay != nil {
		return overlay
	}
	return base
}

func mergeNamedInstallations(base, overlay []Installation) []Installation {
	if len(base) == 0 {
		return overlay
	}
	if len(overlay) == 0 {
		return base
	}

	overlayNames := make(map[string]bool, len(overlay))
	for _, inst := range overlay {
		overlayNames[inst.Name] = true
	}

	var result []Installation
	for _, inst := range base {
		if !overlayNames[inst.Name] {
			result = append(result, inst)
		}
	}

	result = append(result, overlay...)

	return result
}
