package utils

import (
	"os"
	"strconv"
)

// StringToInt converts string to int, returns 0 if error
func StringToInt(s string) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return i
}

// EnvInt 读取整型环境变量，未设置或非法时返回默认值
func EnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// EnvFloat 读取浮点环境变量，未设置或非法时返回默认值
func EnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

// EnvBool 读取布尔环境变量，仅 "true" 视为真
func EnvBool(key string) bool {
	return os.Getenv(key) == "true"
}
