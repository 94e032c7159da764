package timer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrBadClock = errors.New("duration must look like HH:MM:SS")

// FormatClock 秒数转 HH:MM:SS，小时不封顶
func FormatClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ParseClock 解析手动录入的时长；"1:30" 表示 1 小时 30 分，缺的部分按 0 算
func ParseClock(v string) (int64, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, ErrBadClock
	}
	parts := strings.Split(v, ":")
	if len(parts) > 3 {
		return 0, ErrBadClock
	}
	var nums [3]int64
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: %q", ErrBadClock, v)
		}
		nums[i] = n
	}
	return nums[0]*3600 + nums[1]*60 + nums[2], nil
}
