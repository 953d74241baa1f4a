package domain

// Message keys for user-visible job status strings.
const (
	MsgPreparing   = "preparing"
	MsgProcessing  = "processing"
	MsgCompleted   = "completed"
	MsgNoFileFound = "no_file_found"
	MsgDownloadErr = "download_error"
)

var messages = map[string]map[string]string{
	"en": {
		MsgPreparing:   "Preparing download...",
		MsgProcessing:  "Processing...",
		MsgCompleted:   "Download complete",
		MsgNoFileFound: "Download completed but no file found",
		MsgDownloadErr: "Download error",
	},
	"zh": {
		MsgPreparing:   "准备下载...",
		MsgProcessing:  "处理中...",
		MsgCompleted:   "下载完成",
		MsgNoFileFound: "下载完成但未找到文件",
		MsgDownloadErr: "下载出错",
	},
}

// Message returns the localized status string for key. Unknown languages fall
// back to English; unknown keys return the key itself.
func Message(language, key string) string {
	m, ok := messages[language]
	if !ok {
		m = messages["en"]
	}
	if s, ok := m[key]; ok {
		return s
	}
	return key
}
