package roster

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

type Level string

// Notice levels
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a message for the operator.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

func (n Notice) IsZero() bool { return n.Message == "" }

func (n Notice) String() string {
	if n.IsZero() {
		return ""
	}
	return fmt.Sprintf("[%s] %s", n.Level, n.Message)
}

var errorTexts = map[error]string{
	ErrUnsupportedFormat: "صيغة الملف غير مدعومة. الصيغ المسموح بها: " + strings.Join(AllowedExtensions, " "),
	ErrUnreadableFile:    "تعذرت قراءة الملف. تأكد من أنه ملف Excel سليم",
	ErrEmptySheet:        "الملف فارغ أو لا يحتوي إلا على صف العناوين",
	ErrNotExtracted:      "لا توجد بيانات مستخرجة للاستيراد",
	ErrNoValidRecords:    "لا توجد سجلات صالحة للاستيراد",
	ErrCommitInProgress:  "عملية الاستيراد قيد التنفيذ بالفعل",
	ErrLoadInProgress:    "جاري تحميل ملف آخر، يرجى الانتظار",
	ErrNoActor:           "يجب تسجيل الدخول لاستيراد الطلاب",
}

// ErrorNotice renders `err` for the operator.
func ErrorNotice(err error) Notice {
	if text, ok := errorTexts[errors.Cause(err)]; ok {
		return Notice{Level: LevelError, Message: text}
	}
	return Notice{Level: LevelError, Message: "حدث خطأ غير متوقع أثناء معالجة الملف"}
}

func pdfNotice() Notice {
	return Notice{
		Level:   LevelInfo,
		Message: "لا يمكن استخراج البيانات تلقائيا من ملفات PDF. يرجى إدخال الطلاب يدويا أو تحويل الملف إلى جدول Excel",
	}
}

func wordNotice(chars int) Notice {
	return Notice{
		Level:   LevelInfo,
		Message: fmt.Sprintf("تمت قراءة %d حرفا من مستند Word، لكن لا يمكن تحويله إلى سجلات. يرجى استخدام ملف Excel", chars),
	}
}

func extractedNotice(b *Batch) Notice {
	if b.IsEmpty() {
		return Notice{Level: LevelWarning, Message: "لم يتم العثور على أي سجلات في الملف"}
	}
	msg := fmt.Sprintf("تم استخراج %d سجل: %d صالح و%d غير صالح", len(b.Candidates), b.ValidCount(), b.InvalidCount())
	if b.Skipped > 0 {
		msg += fmt.Sprintf("، وتم تجاهل %d صف بدون رمز أو اسم", b.Skipped)
	}
	return Notice{Level: LevelSuccess, Message: msg}
}

func outcomeNotice(o *Outcome) Notice {
	var n Notice
	switch {
	case o.Cancelled:
		n = Notice{Level: LevelWarning, Message: fmt.Sprintf(
			"تم إلغاء الاستيراد: نجح %d وفشل %d ولم تتم معالجة %d", o.Succeeded, o.Failed, o.NotAttempted())}
	case o.Failed == 0:
		n = Notice{Level: LevelSuccess, Message: fmt.Sprintf("تم استيراد %d طالب بنجاح", o.Succeeded)}
	case o.Succeeded == 0:
		n = Notice{Level: LevelError, Message: fmt.Sprintf("فشل استيراد جميع السجلات (%d)", o.Failed)}
	default:
		n = Notice{Level: LevelWarning, Message: fmt.Sprintf("تم استيراد %d طالب بنجاح، وفشل %d", o.Succeeded, o.Failed)}
	}
	if o.Redirect != nil {
		n.Message += ". سيتم تحويلك إلى قائمة الطلاب"
	}
	return n
}
