package models

import "time"

// ObjectInfo is the metadata of one stored object. LastModified is assigned by the store.
type ObjectInfo struct {
	Key          string
	LastModified time.Time
}

type ObjectInfos []ObjectInfo

// Snapshot is an archived copy of the monitored page.
type Snapshot struct {
	ObjectInfo
	Body []byte
}
