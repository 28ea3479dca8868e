package condition

import "os"

// fsPathExists, fsDirExists and fsReadFile are the live filesystem reads the
// FileSystem condition verbs need. They are kept here rather than behind an
// injected interface (unlike ServiceProbe/PortProbe) because the standard
// library already gives every caller in every test environment the same
// behaviour, with nothing platform-specific to swap out.
func fsPathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func fsDirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fsReadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
