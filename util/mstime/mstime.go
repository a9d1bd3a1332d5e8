// Package mstime provides time helpers that operate at millisecond
// precision, the precision of block timestamps on the wire.
package mstime

import "time"

const (
	nanosecondsInMillisecond = int64(time.Millisecond / time.Nanosecond)
	millisecondsInSecond     = int64(time.Second / time.Millisecond)
)

// Now returns the current local time, reduced to millisecond precision.
func Now() time.Time {
	return ReduceToMillisecondPrecision(time.Now())
}

// NowUnixMilli returns the current time as milliseconds since the epoch.
func NowUnixMilli() int64 {
	return TimeToUnixMilli(time.Now())
}

// UnixMilliToTime converts milliseconds since the epoch to a time.Time.
func UnixMilliToTime(ms int64) time.Time {
	seconds := ms / millisecondsInSecond
	nanoseconds := (ms - seconds*millisecondsInSecond) * nanosecondsInMillisecond
	return time.Unix(seconds, nanoseconds)
}

// TimeToUnixMilli converts a time.Time to milliseconds since the epoch.
func TimeToUnixMilli(t time.Time) int64 {
	return t.UnixNano() / nanosecondsInMillisecond
}

// ReduceToMillisecondPrecision truncates t's sub-millisecond component.
func ReduceToMillisecondPrecision(t time.Time) time.Time {
	nanoseconds := int64(t.Nanosecond())
	millisecondPrecisionNanoSeconds := (nanoseconds / nanosecondsInMillisecond) * nanosecondsInMillisecond
	return time.Unix(t.Unix(), millisecondPrecisionNanoSeconds)
}
