package platform

import (
	"os/exec"
	"sort"

	"github.com/datallboy/godl/internal/infra/logger"
)

// OptionalExtractorBinaries lists the archive tools the extraction manager
// shells out to when they are on PATH.
var OptionalExtractorBinaries = map[string]string{
	"unzip": "ZIP",
	"7z":    "7-Zip",
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// CheckExtractors logs which optional extractor binaries are missing and
// returns their names, sorted.
func CheckExtractors(log *logger.Logger, nativeZip bool) []string {
	var missing []string
	for bin := range OptionalExtractorBinaries {
		if _, err := lookPath(bin); err != nil {
			missing = append(missing, bin)
		}
	}
	sort.Strings(missing)

	for _, bin := range missing {
		formatName := OptionalExtractorBinaries[bin]
		if formatName == "ZIP" && nativeZip {
			log.Debug("%s not found, using built-in %s extraction", bin, formatName)
			continue
		}
		log.Info("%s (%s) not found. %s extraction will be disabled.", bin, formatName, formatName)
	}
	return missing
}
