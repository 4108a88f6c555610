package data

// CollectionStatus is the derived view of a collection's rows. It is computed
// on read and never persisted; the per-episode rows stay the only source of
// truth.
type CollectionStatus struct {
	ID       string        `json:"id"`
	State    DownloadState `json:"state"`
	Progress int           `json:"progress"`
	Total    int           `json:"total"`
	Done     int           `json:"done"`
}

// Reduce folds a collection's constituent episode rows into an aggregate
// state and progress. The anchor row for the collection itself must not be
// included. Rules:
//
//   - Completed iff every constituent is Completed.
//   - Otherwise InProgress if any constituent is active (InProgress or
//     Created, i.e. still moving through the queue).
//   - Otherwise Paused or None by majority over the remaining rows.
//
// Progress is the mean of constituent progress.
func Reduce(id string, rows Downloads) CollectionStatus {
	st := CollectionStatus{ID: id}
	if len(rows) == 0 {
		return st
	}
	var (
		sum      int
		active   int
		paused   int
		complete int
	)
	for _, d := range rows {
		sum += d.Progress
		switch d.State {
		case StateCompleted:
			complete++
		case StateInProgress, StateCreated:
			active++
		case StatePaused:
			paused++
		}
	}
	st.Total = len(rows)
	st.Done = complete
	st.Progress = sum / len(rows)
	switch {
	case complete == len(rows):
		st.State = StateCompleted
	case active > 0:
		st.State = StateInProgress
	case paused*2 > len(rows):
		st.State = StatePaused
	default:
		st.State = StateNone
	}
	return st
}
