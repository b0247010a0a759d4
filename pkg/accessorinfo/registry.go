package accessorinfo

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"golang.org/x/exp/slices"
)

// LoadDirectory reads every *.xml provider definition below dir. Broken definitions are logged
// and skipped so one provider cannot take the others down.
func LoadDirectory(dir string) ([]*AccessorInfo, error) {
	var infos []*AccessorInfo

	err := filepath.Walk(dir,
		func(path string, fileInfo os.FileInfo, err error) error {
			if err != nil {
				return err
			}

			if fileInfo.IsDir() || filepath.Ext(path) != ".xml" {
				return nil
			}

			log.Debug().Str("path", path).Msg("Loading provider definition")

			info, err := ReadFile(path)
			if err != nil {
				log.Error().Err(err).Str("path", path).Msg("Skipping invalid provider definition")
				return nil
			}

			infos = append(infos, info)
			return nil
		})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(infos, func(a, b *AccessorInfo) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	return infos, nil
}
