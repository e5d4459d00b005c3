package models

// PackageSpec describes a pinned prebuilt release of rmrf for the
// packaging recipe generators
type PackageSpec struct {
	// Core metadata
	Name        string
	Version     string
	Description string
	Homepage    string
	License     string
	Maintainers []string
	Platforms   []string

	// Binary is the executable inside the release tarball. Generators
	// default it to "rmrf".
	Binary string

	// Release location
	Owner string
	Repo  string

	Assets []Asset
}

// Asset is one platform tarball of a release
type Asset struct {
	// Platform is the asset suffix, "linux" or "macos"
	Platform string
	URL      string
	// SHA256 is hex encoded
	SHA256 string
}

// Asset returns the asset for platform, or nil
func (s *PackageSpec) Asset(platform string) *Asset {
	for i := range s.Assets {
		if s.Assets[i].Platform == platform {
			return &s.Assets[i]
		}
	}
	return nil
}
