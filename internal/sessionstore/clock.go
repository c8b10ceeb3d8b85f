package sessionstore

import "time"

func defaultNowMS() int64 { return time.Now().UnixMilli() }
