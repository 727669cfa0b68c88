package clients

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"BesCrmSaas/internal/serviceiface"
)

type ClientsService struct {
	config  map[string]interface{}
	pgxPool *pgxpool.Pool
}

func NewClientsService(cfg map[string]interface{}, pgxPool *pgxpool.Pool) serviceiface.Service {
	return &ClientsService{config: cfg, pgxPool: pgxPool}
}

func (s *ClientsService) Name() string {
	return "clients"
}

func (s *ClientsService) Start() error {
	go StartClientsService(s.pgxPool)
	return nil
}

func (s *ClientsService) Stop() error {
	return nil
}

func StartClientsService(pgxPool *pgxpool.Pool) {
	router := mux.NewRouter()

	router.HandleFunc("/clients/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Clients Service is active"))
	})

	router.Handle("/clients/import", ImportClients(pgxPool)).Methods("POST")
	router.Handle("/clients/create", CreateClient(pgxPool)).Methods("POST")
	router.Handle("/clients/update", UpdateClient(pgxPool)).Methods("POST")
	router.Handle("/clients/delete", DeleteClient(pgxPool)).Methods("POST")
	router.Handle("/clients/delete-all", DeleteAllClients(pgxPool)).Methods("POST")
	router.Handle("/clients/restore", RestoreClient(pgxPool)).Methods("POST")
	router.Handle("/clients/list", ListClients(pgxPool)).Methods("POST")
	router.Handle("/clients/detail", ClientDetail(pgxPool)).Methods("POST")
	router.Handle("/clients/send-digest", SendSavingsDigest(pgxPool)).Methods("POST")

	log.Println("Clients Service started on :3143")
	if err := http.ListenAndServe(":3143", router); err != nil {
		log.Fatalf("Clients Service failed: %v", err)
	}
}
