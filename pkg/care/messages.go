package care

// Fixed per-language message templates. This is a two-language system by
// design: two hardcoded templates per message, no i18n framework.

var safetyMessages = map[Lang]string{
	LangEnglish: "You matter, and you don't have to face this alone. " +
		"If you are in immediate danger, please call the emergency helpline 116 " +
		"or go to the nearest health facility. A trained counselor is ready to listen to you right now.",
	LangSwahili: "Wewe ni wa muhimu, na haupaswi kukabiliana na hili peke yako. " +
		"Kama uko katika hatari ya haraka, tafadhali piga simu ya msaada ya dharura 116 " +
		"au nenda kituo cha afya kilicho karibu nawe. Mshauri aliyefunzwa yuko tayari kukusikiliza sasa hivi.",
}

var fallbackMessages = map[Lang]string{
	LangEnglish: "I might not have enough information to answer that well. " +
		"Would you like to try a coping tool, or talk to a counselor?",
	LangSwahili: "Huenda sina taarifa za kutosha kujibu hilo vizuri. " +
		"Ungependa kujaribu zana ya kujituliza, au kuongea na mshauri?",
}

var disclaimers = map[Lang]string{
	LangEnglish: "Note: this is not a medical diagnosis. If your symptoms persist, please consult a counselor.",
	LangSwahili: "Kumbuka: haya si uchunguzi wa kitabibu. Kama dalili zako zinaendelea, tafadhali wasiliana na mshauri.",
}

var packHeaders = map[Lang]string{
	LangEnglish: "Here are a few common questions on %s:",
	LangSwahili: "Haya ni baadhi ya maswali ya kawaida kuhusu %s:",
}

var copingToolsLabels = map[Lang]string{
	LangEnglish: "Coping tools",
	LangSwahili: "Zana za kujituliza",
}

var counselorLabels = map[Lang]string{
	LangEnglish: "Talk to a counselor",
	LangSwahili: "Ongea na mshauri",
}

var quickCheckLabels = map[Lang]string{
	LangEnglish: "%s check-in",
	LangSwahili: "Tathmini ya %s",
}

func packHeader(lang Lang) string {
	if header, ok := packHeaders[lang]; ok {
		return header
	}

	return packHeaders[LangEnglish]
}

func localized(messages map[Lang]string, lang Lang) string {
	if message, ok := messages[lang]; ok {
		return message
	}

	return messages[LangEnglish]
}
