package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/zap-ai/zapai/internal/company"
	"github.com/zap-ai/zapai/internal/hours"
)

// The model's output goes straight to WhatsApp, which renders markdown
// literally, so formatting is forbidden at the prompt level.
const formattingRules = `

[INSTRUÇÕES CRÍTICAS DE FORMATAÇÃO - NUNCA USE MARKDOWN]:
1. PROIBIDO o uso de caracteres de Markdown como "#", "##", "###" (títulos).
2. PROIBIDO o uso de negrito com dois asteriscos (ex: **texto**).
3. Se precisar dar ênfase, use apenas CAIXA ALTA ou coloque entre aspas. NUNCA use asteriscos.
4. Use hifens (-) ou números simples (1., 2.) para listas.
5. Suas respostas devem ser texto puro, limpo e amigável, pronto para leitura instantânea no WhatsApp.
6. Nunca comece frases com símbolos ou use formatação de código.`

const operationalRules = `

[OUTRAS INSTRUÇÕES]:
1. SEMPRE use os IDs (UUIDs) para chamar as ferramentas de agendamento e pagamento. Nunca use nomes de serviços ou profissionais nessas chamadas.
2. ANTES de criar um novo agendamento, SEMPRE use 'list_my_appointments' para verificar se o usuário já possui agendamentos desde hoje para o futuro. Se houver agendamentos vindouros, informe o usuário e pergunte se ele deseja REAGENDAR (cancelar o atual e criar um novo) ou CANCELAR.
3. Se o usuário quiser cancelar, use a ferramenta 'cancel_appointment'. O sistema automaticamente removerá do calendário Google dele.
4. Identifique claramente o ID_DO_AGENDAMENTO e o TXID nas suas respostas quando gerá-los.
5. Quando agendar ou cancelar, informe ao usuário que o calendário dele será atualizado automaticamente.
6. Se o usuário enviar uma imagem ou PDF, o sistema tentará analisar e você receberá uma mensagem como [Imagem]: [Descrição]. Se for um comprovante de pagamento, use a ferramenta 'check_payment_status' para verificar no banco de dados se o pagamento já caiu.`

// BuildSystemPrompt assembles the system-context string in the documented
// order: persona, knowledge base, business-hours context, local date/time,
// formatting constraints, operational policy.
func BuildSystemPrompt(agent *company.Agent, settings hours.Settings, open bool, now time.Time) string {
	var b strings.Builder
	if agent != nil {
		b.WriteString(agent.Prompt)
		if agent.KnowledgeBase != "" {
			b.WriteString("\n\n[BASE DE CONHECIMENTO]\n")
			b.WriteString(agent.KnowledgeBase)
		}
	}
	b.WriteString("\n")
	b.WriteString(hours.Context(settings, open))
	fmt.Fprintf(&b, "\nData/Hora atual (Brasília): %s", FormatDateTimePTBR(now))
	b.WriteString(formattingRules)
	b.WriteString(operationalRules)
	return b.String()
}

var weekdaysPTBR = [...]string{
	"domingo", "segunda-feira", "terça-feira", "quarta-feira",
	"quinta-feira", "sexta-feira", "sábado",
}

var monthsPTBR = [...]string{
	"janeiro", "fevereiro", "março", "abril", "maio", "junho",
	"julho", "agosto", "setembro", "outubro", "novembro", "dezembro",
}

// FormatDateTimePTBR renders a timestamp the way pt-BR full date style does,
// e.g. "terça-feira, 4 de novembro de 2025 14:30".
func FormatDateTimePTBR(t time.Time) string {
	return fmt.Sprintf("%s, %d de %s de %d %02d:%02d",
		weekdaysPTBR[int(t.Weekday())], t.Day(), monthsPTBR[int(t.Month())-1], t.Year(), t.Hour(), t.Minute())
}
