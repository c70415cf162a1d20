package sqldb

type Record struct {
	RecordID  string
	SourceURL string
	CreatedAt string
	UpdatedAt string
}

type Snapshot struct {
	RecordID       string
	Sequence       int64
	ID             string
	CapturedAt     string
	NormalizedText string
	Fingerprint    string
	RawRef         string
}
