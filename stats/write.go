package stats

import (
	"math"
	"strconv"
	"time"
)

// WriteFloat64 appends a graphite line for val. NaN and infinities can't be
// represented in the plaintext protocol, so they are skipped.
func WriteFloat64(buf, prefix, key []byte, val float64, now time.Time) []byte {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return buf
	}
	buf = append(buf, prefix...)
	buf = append(buf, key...)
	buf = append(buf, ' ')
	buf = strconv.AppendFloat(buf, val, 'f', -1, 64)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, now.Unix(), 10)
	return append(buf, '\n')
}

func WriteUint32(buf, prefix, key []byte, val uint32, now time.Time) []byte {
	return WriteUint64(buf, prefix, key, uint64(val), now)
}

func WriteUint64(buf, prefix, key []byte, val uint64, now time.Time) []byte {
	buf = append(buf, prefix...)
	buf = append(buf, key...)
	buf = append(buf, ' ')
	buf = strconv.AppendUint(buf, val, 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, now.Unix(), 10)
	return append(buf, '\n')
}

func WriteInt32(buf, prefix, key []byte, val int32, now time.Time) []byte {
	buf = append(buf, prefix...)
	buf = append(buf, key...)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, int64(val), 10)
	buf = append(buf, ' ')
	buf = strconv.AppendInt(buf, now.Unix(), 10)
	return append(buf, '\n')
}
