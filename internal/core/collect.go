package core

import "iter"

// collect pulls records from seq in arrival order until limit are held.
//
// When the limit is reached, stop is invoked while the producer is still
// suspended inside yield, so no further bytes are read from the source
// before the transfer is torn down. Reaching the cap and running out of
// data are reported as distinct outcomes but share the single return path
// below. A producer error ends collection and is returned alongside
// whatever was collected before it.
func collect(seq iter.Seq2[*Record, error], limit int, stop func()) ([]*Record, Outcome, error) {
	records := make([]*Record, 0, min(limit, DefaultSampleLimit))
	outcome := OutcomeEndOfData

	var err error
	for rec, recErr := range seq {
		if recErr != nil {
			err = recErr
			break
		}
		records = append(records, rec)
		if len(records) >= limit {
			outcome = OutcomeCapReached
			if stop != nil {
				stop()
			}
			break
		}
	}

	return records, outcome, err
}
