package training

import (
	"fmt"

	"github.com/anc-caregap-server/internal/encoder"
	"github.com/anc-caregap-server/internal/outcome"
)

// OutcomeColumns are the columns of a dataset built from recorded outcomes.
var OutcomeColumns = append(append(append([]string{}, encoder.NumericColumns...), encoder.CategoricalColumns...), ColCareGap)

// FromOutcomes encodes recorded outcomes into a training dataset. The care gap
// label is taken from the outcome so Prepare uses it as is.
func FromOutcomes(outcomes []*outcome.Outcome, enc *encoder.Encoder) (*Dataset, error) {
	ds := NewDataset(OutcomeColumns...)
	for _, o := range outcomes {
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("outcome %d: %w", o.ID, err)
		}
		row := enc.Encode(o.Profile()).Record()
		row[ColCareGap] = 0
		if o.CareGap {
			row[ColCareGap] = 1
		}
		if err := ds.AddRow(row); err != nil {
			return nil, err
		}
	}
	return ds, nil
}
