package service

import "github.com/pkg/errors"

var (
	errSystem        = errors.New("system error")
	errMissingLeadID = errors.New("missing or invalid lead id")
	errLeadNotFound  = errors.New("lead not found")
)

var ErrorCode = map[error]int{
	errSystem:        1000,
	errMissingLeadID: 1001,
	errLeadNotFound:  1002,
}
