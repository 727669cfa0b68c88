package communications

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"BesCrmSaas/internal/ai"
	"BesCrmSaas/internal/serviceiface"
)

type CommunicationsService struct {
	config  map[string]interface{}
	pgxPool *pgxpool.Pool
}

func NewCommunicationsService(cfg map[string]interface{}, pgxPool *pgxpool.Pool) serviceiface.Service {
	return &CommunicationsService{config: cfg, pgxPool: pgxPool}
}

func (s *CommunicationsService) Name() string {
	return "communications"
}

func (s *CommunicationsService) Start() error {
	go StartCommunicationsService(s.pgxPool)
	return nil
}

func (s *CommunicationsService) Stop() error {
	return nil
}

func StartCommunicationsService(pgxPool *pgxpool.Pool) {
	aiClient := ai.FromEnv()

	router := mux.NewRouter()

	router.HandleFunc("/comms/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Communications Service is active"))
	})

	router.Handle("/comms/template/save", SaveEmailTemplate(pgxPool)).Methods("POST")
	router.Handle("/comms/template/reset", ResetEmailTemplate(pgxPool)).Methods("POST")
	router.Handle("/comms/template/placeholders", ListPlaceholders()).Methods("GET")
	router.Handle("/comms/template/generate-ai", GenerateTemplateWithAI(aiClient)).Methods("POST")
	router.Handle("/comms/reasons", ListReasons()).Methods("GET")
	router.Handle("/comms/market-topics", ListMarketTopics()).Methods("GET")
	router.Handle("/comms/send-digests", SendClientDigests(pgxPool)).Methods("POST")
	router.Handle("/comms/plan", PlanCommunication(pgxPool)).Methods("POST")
	router.Handle("/comms/campaigns/list", ListCampaigns(pgxPool)).Methods("POST")
	router.Handle("/comms/campaigns/detail", CampaignDetail(pgxPool)).Methods("POST")

	log.Println("Communications Service started on :6143")
	if err := http.ListenAndServe(":6143", router); err != nil {
		log.Fatalf("Communications Service failed: %v", err)
	}
}
