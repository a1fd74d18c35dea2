package pos

var paymentMethodLabels = map[string]string{
	PaymentMethodCash:         "Tiền mặt",
	PaymentMethodBankTransfer: "Chuyển khoản",
	PaymentMethodCreditCard:   "Thẻ tín dụng",
	PaymentMethodDebitCard:    "Thẻ ghi nợ",
	PaymentMethodOther:        "Khác",
}

var importStatusLabels = map[string]string{
	ImportStatusPending:   "Chờ duyệt",
	ImportStatusApproved:  "Đã duyệt",
	ImportStatusRejected:  "Từ chối",
	ImportStatusCompleted: "Hoàn thành",
}

var invoiceStatusLabels = map[string]string{
	InvoiceStatusConfirmed: "Đã xác nhận",
	InvoiceStatusDraft:     "Nháp",
	InvoiceStatusCancelled: "Đã hủy",
}

var paymentStatusLabels = map[string]string{
	PaymentStatusPaid:     "Đã thanh toán",
	PaymentStatusPending:  "Chờ thanh toán",
	PaymentStatusPartial:  "Thanh toán một phần",
	PaymentStatusRefunded: "Đã hoàn tiền",
}

func PaymentMethodLabel(method string) string {
	return label(paymentMethodLabels, method)
}

func ImportStatusLabel(status string) string {
	return label(importStatusLabels, status)
}

func InvoiceStatusLabel(status string) string {
	return label(invoiceStatusLabels, status)
}

func PaymentStatusLabel(status string) string {
	return label(paymentStatusLabels, status)
}

func label(labels map[string]string, value string) string {
	if l, ok := labels[value]; ok {
		return l
	}
	return "Không xác định"
}
