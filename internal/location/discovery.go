package location

import "os"

// readDirNames lists the directory entries under dir, skipping anything
// that isn't itself a directory. Shared by both platform variants of
// enumerateUserProfiles.
func readDirNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
