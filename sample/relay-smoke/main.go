package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/programbi/crm-leads/internal/entity"
	"github.com/programbi/crm-leads/internal/infra/integration/relay"
	"github.com/programbi/crm-leads/internal/usecase"
)

// Smoke test manual: manda um lead de exemplo para o relay configurado em RELAY_URL.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Aviso: arquivo .env não encontrado, usando variáveis de ambiente do sistema")
	}

	relayURL := os.Getenv("RELAY_URL")
	if relayURL == "" {
		log.Fatal("❌ RELAY_URL deve estar configurado no .env")
	}

	lead, err := entity.NewLead("Juan Prueba Soto", "juan.prueba@programbi.com", "+56 9 1234 5678",
		"Programbi", "Quiero información del curso", "Smoke", []string{"Power BI", "SQL Avanzado!"})
	if err != nil {
		log.Fatal(err)
	}

	payload := usecase.BuildPayload(*lead)

	fmt.Println("🔄 Enviando lead ao relay...")
	fmt.Printf("   Email: %s\n", payload.Email)
	fmt.Printf("   Tags:  %v\n", payload.Tags)
	fmt.Printf("   Nota:  %q\n\n", payload.Note)

	client := relay.NewClient(relayURL, 15*time.Second)
	res, err := client.Upsert(context.Background(), payload)
	if err != nil {
		var rej *relay.RejectionError
		if errors.As(err, &rej) {
			log.Fatalf("Relay rejeitou (status %d): %s", rej.StatusCode, rej.Detail())
		}
		log.Fatalf("Falha de transporte: %v", err)
	}

	fmt.Printf("Cliente sincronizado! ID remoto: %s (criado: %t)\n", res.RemoteID, res.Created)
}
