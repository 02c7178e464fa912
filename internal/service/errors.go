package service

import "errors"

// 服务层的业务错误，handler 据此映射 HTTP 状态码。
var (
	ErrNotFound         = errors.New("resource not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrUserExists       = errors.New("username already exists")
	ErrInvalidPassword  = errors.New("invalid username or password")
	ErrIngestConflict   = errors.New("document ingestion already in progress")
)
