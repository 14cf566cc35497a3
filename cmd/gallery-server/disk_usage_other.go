//go:build !unix

package main

import "errors"

func getDiskUsage(string) (int64, int64, int64, error) {
	return 0, 0, 0, errors.New("ёмкость диска недоступна на этой платформе")
}
