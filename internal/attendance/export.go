package attendance

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

const (
	ExportUTF8 = "utf8"
	ExportSJIS = "sjis" // Windows の「ANSI（CP932）」相当
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseExportEncoding: 空なら utf8
func ParseExportEncoding(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "utf8", "utf-8":
		return ExportUTF8, true
	case "sjis", "shift_jis", "shift-jis", "cp932":
		return ExportSJIS, true
	default:
		return "", false
	}
}

// ContentType: Content-Type ヘッダ値
func ContentType(enc string) string {
	if enc == ExportSJIS {
		return "text/csv; charset=Shift_JIS"
	}
	return "text/csv; charset=utf-8"
}

// WriteCSV: 打刻一覧を CSV で書き出す。画像トークンは出さない
// sjis で表せない文字は置換文字になる
func WriteCSV(w io.Writer, rows []ClockRecordResponse, enc string, withAddress bool) (err error) {
	out := w
	switch enc {
	case ExportSJIS:
		tw := transform.NewWriter(w, encoding.ReplaceUnsupported(japanese.ShiftJIS.NewEncoder()))
		defer func() {
			if cerr := tw.Close(); err == nil {
				err = cerr
			}
		}()
		out = tw
	default:
		// Excel が UTF-8 と判定できるよう BOM を付ける
		if _, err := w.Write(utf8BOM); err != nil {
			return err
		}
	}

	cw := csv.NewWriter(out)
	header := []string{"id", "worker_name", "action", "timestamp", "latitude", "longitude", "accuracy"}
	if withAddress {
		header = append(header, "address")
	}
	header = append(header, "created_at")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.ID, 10),
			r.WorkerName,
			r.Action,
			r.Timestamp,
			formatFloat(r.Latitude),
			formatFloat(r.Longitude),
			formatFloat(r.Accuracy),
		}
		if withAddress {
			record = append(record, deref(r.Address))
		}
		record = append(record, r.CreatedAt.UTC().Format(time.RFC3339))
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
