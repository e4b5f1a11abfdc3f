package tools

import (
	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Tool names form a closed set; Execute rejects anything else.
const (
	NameListServices       = "list_services"
	NameListProfessionals  = "list_professionals"
	NameGetAvailableSlots  = "get_available_slots"
	NameCreateAppointment  = "create_appointment"
	NameGeneratePayment    = "generate_payment"
	NameCheckPaymentStatus = "check_payment_status"
	NameListAppointments   = "list_my_appointments"
	NameCancelAppointment  = "cancel_appointment"
)

func noParams() jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.Object, Properties: map[string]jsonschema.Definition{}}
}

func definitions() []openai.Tool {
	return []openai.Tool{
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        NameListServices,
				Description: "Lista todos os serviços e preços da empresa.",
				Parameters:  noParams(),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        NameListProfessionals,
				Description: "Lista os profissionais disponíveis.",
				Parameters:  noParams(),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        NameGetAvailableSlots,
				Description: "Busca horários disponíveis para um profissional em uma data.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"professional_id": {Type: jsonschema.String, Description: "ID (UUID) do profissional obtido em list_professionals"},
						"service_id":      {Type: jsonschema.String, Description: "ID (UUID) do serviço obtido em list_services"},
						"date":            {Type: jsonschema.String, Description: "Formato YYYY-MM-DD"},
					},
					Required: []string{"professional_id", "service_id", "date"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        NameCreateAppointment,
				Description: "Realiza o agendamento de um serviço.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"service_id":      {Type: jsonschema.String, Description: "ID (UUID) extraído em list_services"},
						"professional_id": {Type: jsonschema.String, Description: "ID (UUID) extraído em list_professionals"},
						"date":            {Type: jsonschema.String},
						"time":            {Type: jsonschema.String, Description: "Formato HH:mm"},
					},
					Required: []string{"service_id", "professional_id", "date", "time"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        NameGeneratePayment,
				Description: "Gera um código PIX para pagamento de um agendamento.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"appointment_id": {Type: jsonschema.String},
					},
					Required: []string{"appointment_id"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        NameCheckPaymentStatus,
				Description: "Verifica se o pagamento de um agendamento foi confirmado.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"appointment_id": {Type: jsonschema.String},
					},
					Required: []string{"appointment_id"},
				},
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        NameListAppointments,
				Description: "Consulta os agendamentos realizados pelo usuário atual (focando em agendamentos hoje e futuros).",
				Parameters:  noParams(),
			},
		},
		{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        NameCancelAppointment,
				Description: "Cancela um agendamento existente.",
				Parameters: jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"appointment_id": {Type: jsonschema.String, Description: "ID (UUID) do agendamento a ser cancelado"},
					},
					Required: []string{"appointment_id"},
				},
			},
		},
	}
}
