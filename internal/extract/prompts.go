package extract

import "strings"

// ReceiptPrompt asks for one JSON object describing a receipt image.
const ReceiptPrompt = `Analyze receipt. Return ONLY raw JSON:
{"date": "YYYY-MM-DD", "store": "Store Name", "category": "Category", "total": "Amount (number only)", "summary": "Short description"}`

const bulkPromptTemplate = `You are a Data Cleaning AI. I have a raw bank statement.
Your job:
1. Parse every row of the statement below.
2. Identify the 'Date', 'Description', and 'Amount' of each row.
3. Categorize each transaction (e.g., Food, Travel, Tech, Bills, Shopping).
4. Ignore 'Salary', refunds or any other positive income (we only track expenses).
5. Write every amount as a positive number without currency symbols.
6. Return valid JSON list.

RAW DATA:
{{statement}}

OUTPUT FORMAT (JSON List):
[
  {"date": "YYYY-MM-DD", "store": "Clean Name", "category": "Category", "total": "Amount", "summary": "Desc"},
  ...
]`

// BulkPrompt embeds the full statement text into the bulk instruction.
func BulkPrompt(statement string) string {
	return strings.Replace(bulkPromptTemplate, "{{statement}}", strings.TrimSpace(statement), 1)
}
