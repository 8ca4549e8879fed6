package storage

// ObjectFinalizedEvent 对象存储finalize通知的消息体，
// 字段沿用GCS对象变更通知的命名
type ObjectFinalizedEvent struct {
	Bucket         string `json:"bucket"`
	Name           string `json:"name"`
	ResourceState  string `json:"resourceState"`  // "exists" 或 "not_exists"
	Metageneration string `json:"metageneration"` // "1" 表示首次写入，其余为元数据更新
	ContentType    string `json:"contentType,omitempty"`
	TimeCreated    string `json:"timeCreated,omitempty"`
}

// IsDeletion 对象已被删除的通知
func (e *ObjectFinalizedEvent) IsDeletion() bool {
	return e.ResourceState == "not_exists"
}

// IsMetadataUpdate 非首次写入，仅元数据变更
func (e *ObjectFinalizedEvent) IsMetadataUpdate() bool {
	return e.Metageneration != "" && e.Metageneration != "1"
}
