package config

import "os"

const badFileName = "_bad_file_name_"

// noColorRequested honors https://no-color.org convention.
func noColorRequested() bool {
	v, ok := os.LookupEnv("NO_COLOR")
	return ok && v != ""
}
