package optflow

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// WriteTrailsCSV dumps trails as "id;x,y|x,y|..." rows with header
func WriteTrailsCSV(w io.Writer, points []*TrackedPoint) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'

	err := writer.Write([]string{"id", "track"})
	if err != nil {
		return errors.Wrap(err, "Can't write header")
	}
	for _, point := range points {
		trail := point.Trail()
		data := make([]string, len(trail))
		for idx, pt := range trail {
			data[idx] = fmt.Sprintf("%f,%f", pt.X, pt.Y)
		}
		err = writer.Write([]string{point.ID().String(), strings.Join(data, "|")})
		if err != nil {
			return errors.Wrapf(err, "Can't write trail of point %s", point.ID().String())
		}
	}
	writer.Flush()
	return errors.Wrap(writer.Error(), "Can't flush trails")
}
