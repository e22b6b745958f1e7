package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-pos-books/internal/apperr"
	"go-pos-books/internal/reports"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const (
	defaultModel  = "gemini-2.0-flash-001"
	maxToolRounds = 5
)

// Toolbox is the read-only reporting surface the assistant may call.
type Toolbox interface {
	CheckInventory(ctx context.Context, name string) ([]reports.StockLevel, error)
	ParseRange(start, end string) (time.Time, time.Time, error)
	Sales(ctx context.Context, start, end time.Time) (*reports.SalesReport, error)
	VATPosition(ctx context.Context, month string) (*reports.VATPositionReport, error)
	ComplianceReminders(ctx context.Context) (*reports.ComplianceReport, error)
}

type Agent struct {
	apiKey  string
	model   string
	toolbox Toolbox
	logger  *logrus.Logger
	now     func() time.Time
}

func NewAgent(apiKey string, toolbox Toolbox, logger *logrus.Logger) *Agent {
	return &Agent{apiKey: apiKey, model: defaultModel, toolbox: toolbox, logger: logger, now: time.Now}
}

// Enabled reports whether an API key was configured.
func (a *Agent) Enabled() bool { return a != nil && a.apiKey != "" }

func (a *Agent) RunAgent(ctx context.Context, userMessage string) (string, error) {
	if !a.Enabled() {
		return "", apperr.Validation("Assistant is not configured")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(a.apiKey))
	if err != nil {
		return "", apperr.Internal("Failed to reach the assistant", err)
	}
	defer client.Close()

	model := client.GenerativeModel(a.model)
	model.Tools = Tools()
	session := model.StartChat()

	resp, err := session.SendMessage(ctx, genai.Text(systemPrompt(a.now(), userMessage)))
	if err != nil {
		return "", apperr.Internal("Assistant request failed", err)
	}

	// --- HANDLE TOOL CALLS ---
	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			return printResponse(resp), nil
		}
		parts := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			a.logger.WithFields(logrus.Fields{"module": "ai", "tool": call.Name}).Info("assistant tool call")
			parts = append(parts, executeTool(ctx, a.toolbox, call))
		}
		if resp, err = session.SendMessage(ctx, parts...); err != nil {
			return "", apperr.Internal("Assistant request failed", err)
		}
	}
	return printResponse(resp), nil
}

func systemPrompt(now time.Time, userMessage string) string {
	return fmt.Sprintf(`SYSTEM: Today is %s. You are the bookkeeping assistant for a retail point of sale.

	RULES:
	1. STOCK: For stock levels or low-stock questions call 'check_inventory'. Pass a name to look up one item.
	2. SALES: For revenue, order counts or best sellers call 'get_sales_report' with a date range.
	3. VAT: For VAT owed or VAT credit call 'get_vat_position' with the month (YYYY-MM).
	4. DEADLINES: For filing dates call 'get_compliance_reminders'.
	5. Answer only from tool results. Amounts are in Naira.

	USER: %s`, now.Format("2006-01-02"), userMessage)
}

// --- DEFINE TOOLS ---
func Tools() []*genai.Tool {
	return []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        "check_inventory",
					Description: "List products and raw materials at or below their reorder threshold, or look one up by name.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"name": {Type: genai.TypeString, Description: "Optional product or material name"},
						},
					},
				},
				{
					Name:        "get_sales_report",
					Description: "Get total sales revenue, order count and best sellers for a date range.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
							"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
						},
						Required: []string{"start_date", "end_date"},
					},
				},
				{
					Name:        "get_vat_position",
					Description: "Get output VAT, claimable input VAT and the VAT payable or credit for a month.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"month": {Type: genai.TypeString, Description: "Month (YYYY-MM); defaults to the current month"},
						},
					},
				},
				{
					Name:        "get_compliance_reminders",
					Description: "Get the next VAT, PAYE, WHT, annual return and CIT filing deadlines.",
				},
			},
		},
	}
}

// executeTool runs one function call against the toolbox. Failures are
// reported back to the model rather than aborting the conversation.
func executeTool(ctx context.Context, tb Toolbox, call genai.FunctionCall) genai.FunctionResponse {
	var (
		result any
		err    error
	)
	switch call.Name {
	case "check_inventory":
		result, err = tb.CheckInventory(ctx, stringArg(call.Args, "name"))

	case "get_sales_report":
		start, end, perr := tb.ParseRange(stringArg(call.Args, "start_date"), stringArg(call.Args, "end_date"))
		if perr != nil {
			err = perr
			break
		}
		result, err = tb.Sales(ctx, start, end)

	case "get_vat_position":
		result, err = tb.VATPosition(ctx, stringArg(call.Args, "month"))

	case "get_compliance_reminders":
		result, err = tb.ComplianceReminders(ctx)

	default:
		err = apperr.Validation("unknown tool %q", call.Name)
	}

	if err != nil {
		msg := "Error: the lookup failed."
		if apperr.KindOf(err) != apperr.KindInternal {
			msg = "Error: " + err.Error()
		}
		return genai.FunctionResponse{Name: call.Name, Response: map[string]any{"error": msg}}
	}

	jsonBytes, err := json.Marshal(result)
	if err != nil {
		return genai.FunctionResponse{Name: call.Name, Response: map[string]any{"error": "Error: could not encode result."}}
	}
	return genai.FunctionResponse{Name: call.Name, Response: map[string]any{"result": string(jsonBytes)}}
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if funcCall, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, funcCall)
		}
	}
	return calls
}

func printResponse(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "I could not find an answer."
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return "I completed the action."
}
