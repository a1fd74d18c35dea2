package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"steelpos/internal/api"
	"steelpos/internal/forms"
	"steelpos/internal/llm"
	"steelpos/internal/pos"
	"steelpos/internal/session"
)

var (
	ErrSignInRequired = errors.New("sign in required")
	ErrFileRequired   = errors.New("--file is required")
	ErrAborted        = errors.New("aborted")
)

// loadError marks a failed initial read of a page. It is shown as a full
// alert rather than an inline line.
type loadError struct {
	what string
	err  error
}

func (e *loadError) Error() string {
	return "loading " + e.what + ": " + e.err.Error()
}

func (e *loadError) Unwrap() error {
	return e.err
}

func loadFailed(what string, err error) error {
	if err == nil {
		return nil
	}
	return &loadError{what: what, err: err}
}

// FriendlyError renders err in the operator's language.
func FriendlyError(err error) string {
	if err == nil {
		return ""
	}

	var le *loadError
	if errors.As(err, &le) {
		return "┃ Lỗi: không thể tải " + le.what + ".\n┃ " + FriendlyError(le.err)
	}

	if v, ok := forms.AsViolations(err); ok {
		return violationsText(v)
	}

	var apiErr *api.Error
	switch {
	case errors.Is(err, context.Canceled):
		return "Đã huỷ."
	case errors.Is(err, context.DeadlineExceeded):
		return "Hết thời gian chờ phản hồi từ máy chủ."
	case errors.Is(err, ErrSignInRequired), errors.Is(err, session.ErrNoSession):
		return "Vui lòng đăng nhập: steelpos login --username <tên> --password <mật khẩu>"
	case errors.Is(err, api.ErrUnauthenticated):
		return "Phiên đăng nhập đã hết hạn, vui lòng đăng nhập lại."
	case errors.Is(err, forms.ErrOutOfStock):
		return "Sản phẩm này đã hết hàng"
	case errors.Is(err, forms.ErrDuplicateItem):
		return "Sản phẩm này đã có trong hoá đơn"
	case errors.Is(err, forms.ErrLastItem):
		return "Phải có ít nhất một dòng sản phẩm"
	case errors.Is(err, forms.ErrUnknownItem):
		return "Không tìm thấy dòng sản phẩm"
	case errors.Is(err, pos.ErrEmptyQuery):
		return "Vui lòng nhập từ khoá tìm kiếm"
	case errors.Is(err, pos.ErrApprovalNoteRequired):
		return "Vui lòng nhập ghi chú phê duyệt"
	case errors.Is(err, llm.ErrNotConfigured):
		return "Trợ lý báo cáo chưa được cấu hình: đặt LLM_API_KEY và LLM_MODEL."
	case errors.Is(err, ErrFileRequired):
		return "Cần tệp dữ liệu: --file <đường dẫn.json>"
	case errors.As(err, &apiErr):
		return apiErrorText(apiErr)
	default:
		return err.Error()
	}
}

func apiErrorText(e *api.Error) string {
	var msg string
	switch {
	case e.Kind == api.KindTransport:
		msg = "Không thể kết nối tới máy chủ. Kiểm tra mạng và thử lại."
	case e.Kind == api.KindAuth:
		msg = "Phiên đăng nhập đã hết hạn, vui lòng đăng nhập lại."
	case e.Message != "":
		msg = e.Message
	case e.Status == http.StatusNotFound:
		msg = "Không tìm thấy dữ liệu."
	case e.Status == http.StatusForbidden:
		msg = "Bạn không có quyền thực hiện thao tác này."
	case e.Status >= http.StatusInternalServerError:
		msg = fmt.Sprintf("Máy chủ gặp lỗi (%d). Vui lòng thử lại sau.", e.Status)
	default:
		msg = fmt.Sprintf("Có lỗi xảy ra (%d).", e.Status)
	}
	if len(e.Fields) > 0 {
		msg += "\n" + violationsText(forms.Violations(e.Fields))
	}
	return msg
}

func violationsText(v forms.Violations) string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var b strings.Builder
	b.WriteString("Dữ liệu chưa hợp lệ:")
	for _, f := range fields {
		fmt.Fprintf(&b, "\n  %s: %s", f, v[f])
	}
	return b.String()
}
