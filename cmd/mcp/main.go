package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abdegenius/cashley-bot/internal/clients/cashley"
	"github.com/abdegenius/cashley-bot/internal/domain"
	"github.com/abdegenius/cashley-bot/internal/service"
)

// MCP server exposing the wallet over stdio JSON-RPC, so an LLM agent can
// check balances and manage payment schedules on the user's behalf.

// JSON-RPC structures
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCP structures
type InitializeResult struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities"`
	ServerInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"serverInfo"`
}

type Tool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Enum        []string `json:"enum,omitempty"`
}

type ToolsListResult struct {
	Tools []Tool `json:"tools"`
}

type ToolCallParams struct {
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

type ToolCallResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// MCP Server
type MCPServer struct {
	schedules *service.ScheduleService
	wallet    *service.WalletService
}

func NewMCPServer() *MCPServer {
	apiURL := os.Getenv("CASHLEY_API_URL")
	if apiURL == "" {
		apiURL = cashley.DefaultBaseURL
	}
	client := cashley.NewClient(apiURL, os.Getenv("CASHLEY_API_TOKEN"))
	return &MCPServer{
		schedules: service.NewScheduleService(client),
		wallet:    service.NewWalletService(client),
	}
}

func (s *MCPServer) Run() {
	reader := bufio.NewReader(os.Stdin)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				return
			}
			fmt.Fprintf(os.Stderr, "Error reading: %v\n", err)
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing JSON: %v\n", err)
			continue
		}

		response := s.handleRequest(req)
		responseBytes, _ := json.Marshal(response)
		fmt.Println(string(responseBytes))
	}
}

func (s *MCPServer) handleRequest(req JSONRPCRequest) JSONRPCResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "initialized":
		return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: nil}
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
	default:
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32601, Message: "Method not found"},
		}
	}
}

func (s *MCPServer) handleInitialize(req JSONRPCRequest) JSONRPCResponse {
	result := InitializeResult{
		ProtocolVersion: "2024-11-05",
		Capabilities: map[string]interface{}{
			"tools": map[string]interface{}{},
		},
	}
	result.ServerInfo.Name = "cashley-mcp"
	result.ServerInfo.Version = "1.0.0"

	return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (s *MCPServer) handleToolsList(req JSONRPCRequest) JSONRPCResponse {
	actionEnum := []string{"airtime", "data", "electricity", "tv"}
	refSchema := InputSchema{
		Type: "object",
		Properties: map[string]Property{
			"reference": {Type: "string", Description: "Server-issued schedule reference"},
		},
		Required: []string{"reference"},
	}

	tools := []Tool{
		{
			Name:        "cashley_get_balance",
			Description: "Get the wallet balance and account tag.",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
		},
		{
			Name:        "cashley_list_transactions",
			Description: "List the most recent wallet transactions.",
			InputSchema: InputSchema{Type: "object", Properties: map[string]Property{}},
		},
		{
			Name:        "cashley_list_schedules",
			Description: "List recurring payment schedules, optionally filtered by service category.",
			InputSchema: InputSchema{
				Type: "object",
				Properties: map[string]Property{
					"action": {Type: "string", Description: "Filter by service category", Enum: actionEnum},
				},
			},
		},
		{
			Name:        "cashley_pause_schedule",
			Description: "Pause a running payment schedule. Only running schedules can be paused.",
			InputSchema: refSchema,
		},
		{
			Name:        "cashley_resume_schedule",
			Description: "Resume a paused payment schedule. Only paused schedules can be resumed.",
			InputSchema: refSchema,
		},
		{
			Name:        "cashley_schedule_history",
			Description: "Get the payment attempts recorded for one schedule.",
			InputSchema: refSchema,
		},
		{
			Name:        "cashley_delete_schedule",
			Description: "Delete a payment schedule permanently.",
			InputSchema: refSchema,
		},
	}

	return JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: ToolsListResult{Tools: tools}}
}

func (s *MCPServer) handleToolsCall(req JSONRPCRequest) JSONRPCResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &RPCError{Code: -32602, Message: "Invalid params"},
		}
	}

	reference := fmt.Sprintf("%v", params.Arguments["reference"])

	var result string
	var isError bool

	switch params.Name {
	case "cashley_get_balance":
		result, isError = s.getBalance()
	case "cashley_list_transactions":
		result, isError = s.listTransactions()
	case "cashley_list_schedules":
		action, _ := params.Arguments["action"].(string)
		result, isError = s.listSchedules(domain.ActionKind(action))
	case "cashley_pause_schedule":
		result, isError = s.setStatus(reference, domain.StatusPause)
	case "cashley_resume_schedule":
		result, isError = s.setStatus(reference, domain.StatusRunning)
	case "cashley_schedule_history":
		result, isError = s.scheduleHistory(reference)
	case "cashley_delete_schedule":
		result, isError = s.deleteSchedule(reference)
	default:
		result = "Unknown tool: " + params.Name
		isError = true
	}

	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: ToolCallResult{
			Content: []ContentBlock{{Type: "text", Text: result}},
			IsError: isError,
		},
	}
}

func (s *MCPServer) getBalance() (string, bool) {
	wallet, err := s.wallet.Balance()
	if err != nil {
		return err.Error(), true
	}
	return prettyJSON(wallet)
}

func (s *MCPServer) listTransactions() (string, bool) {
	txs, err := s.wallet.RecentTransactions(20)
	if err != nil {
		return err.Error(), true
	}
	return prettyJSON(txs)
}

func (s *MCPServer) listSchedules(action domain.ActionKind) (string, bool) {
	if action != "" && !action.Valid() {
		return "Unknown service category: " + string(action), true
	}
	schedules, err := s.schedules.List(action)
	if err != nil {
		return err.Error(), true
	}
	return prettyJSON(schedules)
}

// setStatus toggles a schedule, but only in the requested direction.
func (s *MCPServer) setStatus(reference string, want domain.Status) (string, bool) {
	sched, err := s.schedules.Get(reference)
	if err != nil {
		return err.Error(), true
	}
	if sched.CurrentStatus() == want {
		return fmt.Sprintf("Schedule %s is already %s", reference, want), false
	}

	updated, err := s.schedules.Toggle(reference)
	if err != nil {
		return err.Error(), true
	}
	return fmt.Sprintf("Schedule %s is now %s", reference, updated.CurrentStatus()), false
}

func (s *MCPServer) scheduleHistory(reference string) (string, bool) {
	entries, err := s.schedules.History(reference)
	if err != nil {
		return err.Error(), true
	}
	return prettyJSON(entries)
}

func (s *MCPServer) deleteSchedule(reference string) (string, bool) {
	if err := s.schedules.Remove(reference); err != nil {
		return err.Error(), true
	}
	return "Schedule " + reference + " deleted", false
}

func prettyJSON(v interface{}) (string, bool) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err.Error(), true
	}
	return string(data), false
}

func main() {
	server := NewMCPServer()
	server.Run()
}
