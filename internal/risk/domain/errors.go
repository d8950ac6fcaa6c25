package domain

import "errors"

var (
	// ErrInvalidInput 输入超出定义域，计算前直接拒绝
	ErrInvalidInput = errors.New("invalid input")
	// ErrInsufficientData 样本量不足以支撑计算
	ErrInsufficientData = errors.New("insufficient data")
)
