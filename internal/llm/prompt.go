package llm

import (
	"fmt"
	"strings"
	"time"
)

const basePrompt = `Bạn là trợ lý báo cáo của cửa hàng kinh doanh thép.
Chỉ trả lời dựa trên dữ liệu lấy từ các công cụ; không bịa số liệu.
Số tiền tính bằng VND, hiển thị dạng 1.234.567 ₫.
Ngày truyền cho công cụ theo định dạng YYYY-MM-DD.
Nếu câu hỏi thiếu khoảng thời gian, dùng 7 ngày gần nhất và nói rõ điều đó.
Trả lời ngắn gọn bằng tiếng Việt.`

// SystemPrompt renders the assistant instructions for the given moment.
func SystemPrompt(now time.Time, interactive bool) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	fmt.Fprintf(&b, "\nHôm nay là %s (%s).", now.Format("2006-01-02"), weekday(now.Weekday()))
	if interactive {
		b.WriteString("\nĐây là phiên hội thoại; có thể hỏi lại người dùng khi câu hỏi chưa rõ.")
	} else {
		b.WriteString("\nĐây là câu hỏi một lần; không hỏi lại, hãy chọn giả định hợp lý.")
	}
	return b.String()
}

func SystemPromptWithContext(interactive bool) string {
	return SystemPrompt(time.Now(), interactive)
}

var weekdays = [...]string{"Chủ nhật", "Thứ hai", "Thứ ba", "Thứ tư", "Thứ năm", "Thứ sáu", "Thứ bảy"}

func weekday(d time.Weekday) string {
	return weekdays[d]
}
