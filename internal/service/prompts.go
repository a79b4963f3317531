package service

import (
	"regexp"
	"strings"
)

const systemPrompt = `أنت باحث أكاديمي يكتب أوراقاً علمية باللغة العربية الفصحى.

التزم بما يلي في كل قسم:
- راجع العنوان وما كُتب من أقسام قبل البدء
- حافظ على تسلسل منطقي ومصطلحات موحدة مع الأقسام السابقة
- استند إلى النتائج والأفكار المذكورة سابقاً عند الحاجة
- وثّق داخل النص بأسلوب عربي
- اكتب فقرات متماسكة دون عناوين فرعية زائدة

وعند متابعة نص موجود:
- حافظ على الأسلوب والسياق نفسيهما
- أكمل الأفكار المفتوحة وأضف أدلة جديدة`

const enhanceSystemPrompt = `أنت محرر أكاديمي. حسّن صياغة النص ووضوحه وسلامته اللغوية مع الحفاظ على معناه ومصادره، وأعد النص المحسّن فقط.`

// 各章节提示词，{{key}} 由标题和已完成章节填充
var sectionPrompts = map[string]string{
	"title": `اقترح صياغة أكاديمية دقيقة لعنوان بحث حول: "{{title}}"
أعد عنواناً واحداً فقط دون شرح.`,

	"abstract": `اكتب ملخصاً لبحث بعنوان: "{{title}}"

ليكن الملخص بين 600 و800 كلمة ويغطي:
- هدف البحث
- المنهج المتبع
- أبرز النتائج والتوصيات
- التطبيقات العملية المتوقعة`,

	"introduction": `عنوان البحث: "{{title}}"
الملخص: "{{abstract}}"

اكتب مقدمة بين 900 و1000 كلمة تشمل:
- خلفية الموضوع
- مشكلة البحث وأهميتها
- الأهداف والأسئلة البحثية
- أهم الدراسات السابقة`,

	"methodology": `عنوان البحث: "{{title}}"
الملخص: "{{abstract}}"
المقدمة: "{{introduction}}"

اكتب قسم المنهجية بين 900 و1000 كلمة موضحاً:
- تصميم البحث
- المجتمع والعينة
- أدوات جمع البيانات
- خطوات التطبيق
- أساليب التحليل`,

	"results": `عنوان البحث: "{{title}}"
المنهجية: "{{methodology}}"

اكتب قسم النتائج بين 900 و1000 كلمة يتضمن:
- النتائج الرئيسية
- تحليل البيانات
- الإجابة عن أسئلة البحث
- الأدلة والإحصاءات الداعمة`,

	"discussion": `عنوان البحث: "{{title}}"
النتائج: "{{results}}"

اكتب قسم المناقشة بين 900 و1000 كلمة يتناول:
- تفسير النتائج
- مقارنتها بالدراسات السابقة
- الآثار النظرية والتطبيقية
- نقاط القوة وحدود الدراسة`,

	"conclusion": `عنوان البحث: "{{title}}"
النتائج: "{{results}}"
المناقشة: "{{discussion}}"

اكتب الخاتمة بين 900 و1000 كلمة وتشمل:
- خلاصة النتائج
- الاستنتاجات
- التوصيات العملية
- مقترحات لبحوث لاحقة`,

	"continue": `النص الحالي:

{{content}}

تابع كتابة هذا القسم بإضافة 400 إلى 500 كلمة جديدة تحافظ على السياق والأسلوب، وتكمل الأفكار المطروحة بأدلة جديدة مع التوثيق داخل النص.`,

	"enhance": `حسّن النص التالي:

{{content}}`,
}

var placeholderRe = regexp.MustCompile(`{{(\w+)}}`)

// renderPrompt 先替换标题，其余占位符取 vars，缺失时为空
func renderPrompt(section, title string, vars map[string]string) (string, bool) {
	tmpl, ok := sectionPrompts[section]
	if !ok {
		return "", false
	}

	out := strings.ReplaceAll(tmpl, "{{title}}", title)
	out = placeholderRe.ReplaceAllStringFunc(out, func(m string) string {
		key := placeholderRe.FindStringSubmatch(m)[1]
		return vars[key]
	})
	return out, true
}
