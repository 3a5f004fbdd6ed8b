package usecase

import "errors"

// ErrUnknownLabel はラベルテーブルに存在しないラベル名が指定された場合のエラーです。
var ErrUnknownLabel = errors.New("unknown label")
