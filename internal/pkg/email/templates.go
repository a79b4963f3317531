package email

import (
	"bytes"
	"html/template"
)

var verificationTmpl = template.Must(template.New("verify").Parse(`<!DOCTYPE html>
<html lang="ar" dir="rtl">
<head>
    <meta charset="UTF-8">
</head>
<body style="font-family: Tahoma, Arial, sans-serif; line-height: 1.8; color: #333; direction: rtl; text-align: right;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h2 style="color: #2563eb;">تأكيد البريد الإلكتروني</h2>
        <p>مرحباً {{.Name}}،</p>
        <p>شكراً لتسجيلك في مساعد البحث العلمي. لتفعيل حسابك اضغط على الزر التالي:</p>
        <div style="text-align: center; margin: 30px 0;">
            <a href="{{.URL}}" style="background-color: #2563eb; color: white; padding: 12px 30px; text-decoration: none; border-radius: 5px; display: inline-block;">تأكيد البريد</a>
        </div>
        <p>أو انسخ الرابط التالي في المتصفح:</p>
        <p style="background-color: #f3f4f6; padding: 10px; word-break: break-all; direction: ltr; text-align: left;">{{.URL}}</p>
        <p>صلاحية الرابط 24 ساعة.</p>
        <p>إذا لم تقم بإنشاء هذا الحساب يمكنك تجاهل هذه الرسالة.</p>
        <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 20px 0;">
        <p style="color: #6b7280; font-size: 12px;">رسالة آلية، يرجى عدم الرد عليها.</p>
    </div>
</body>
</html>
`))

// VerificationSubject 验证邮件标题
const VerificationSubject = "تأكيد البريد الإلكتروني - مساعد البحث العلمي"

// RenderVerification 渲染验证邮件
func RenderVerification(name, url string) (string, error) {
	var buf bytes.Buffer
	err := verificationTmpl.Execute(&buf, struct {
		Name string
		URL  string
	}{Name: name, URL: url})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
