package feedloader

import (
	"fmt"
	"path/filepath"
	"time"
)

// StampFormat formats the run timestamp used in artifact names.
const StampFormat = "2006_01_02_15_04_05"

// DefaultFilePrefix is the artifact name prefix when Config.FilePrefix is empty.
const DefaultFilePrefix = "products_data"

// Artifacts locates the files produced by one run.
// After archiving they may be gs:// URIs instead of local paths.
type Artifacts struct {
	Raw     string
	Tabular string
}

// ArtifactPaths names the raw and tabular artifacts of a run stamped at stamp.
func ArtifactPaths(dir, prefix string, stamp time.Time) Artifacts {
	if prefix == "" {
		prefix = DefaultFilePrefix
	}
	s := stamp.Format(StampFormat)

	return Artifacts{
		Raw:     filepath.Join(dir, fmt.Sprintf("%s_raw_%s.json", prefix, s)),
		Tabular: filepath.Join(dir, fmt.Sprintf("%s_trans_%s.csv", prefix, s)),
	}
}
