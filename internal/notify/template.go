package notify

import "fmt"

// TemplateData carries everything the upload-link message needs.
type TemplateData struct {
	ClientName    string
	UploadURL     string
	LinkHours     int
	FoodBankName  string
	FoodBankPhone string
}

// RenderUploadMessage builds the SMS body sent with every issued upload link.
func RenderUploadMessage(d TemplateData) string {
	return fmt.Sprintf(`Hi %s,

Your %s fuel support is ready!

Please provide:
- Photo of your meter reading
- Photo of yourself with ID

Upload here: %s

Link expires in %d hours

Questions? Call %s

- %s Team`,
		d.ClientName, d.FoodBankName, d.UploadURL, d.LinkHours, d.FoodBankPhone, d.FoodBankName)
}
