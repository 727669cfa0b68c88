package uam

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"BesCrmSaas/internal/serviceiface"
)

type UamService struct {
	config  map[string]interface{}
	pgxPool *pgxpool.Pool
}

func NewUamService(cfg map[string]interface{}, pgxPool *pgxpool.Pool) serviceiface.Service {
	return &UamService{config: cfg, pgxPool: pgxPool}
}

func (s *UamService) Name() string {
	return "uam"
}

func (s *UamService) Start() error {
	go StartUamService(s.pgxPool)
	return nil
}

func (s *UamService) Stop() error {
	return nil
}

func StartUamService(pgxPool *pgxpool.Pool) {
	router := mux.NewRouter()

	router.HandleFunc("/uam/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("UAM Service is active"))
	})

	router.Handle("/uam/profile/update", UpdateProfile(pgxPool)).Methods("POST")

	log.Println("UAM Service started on :5143")
	if err := http.ListenAndServe(":5143", router); err != nil {
		log.Fatalf("UAM Service failed: %v", err)
	}
}
