package dash

import (
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"

	"BesCrmSaas/internal/serviceiface"
)

type DashService struct {
	config  map[string]interface{}
	pgxPool *pgxpool.Pool
}

func NewDashService(cfg map[string]interface{}, pgxPool *pgxpool.Pool) serviceiface.Service {
	return &DashService{config: cfg, pgxPool: pgxPool}
}

func (s *DashService) Name() string {
	return "dash"
}

func (s *DashService) Start() error {
	go StartDashService(s.pgxPool)
	return nil
}

func (s *DashService) Stop() error {
	return nil
}

func StartDashService(pgxPool *pgxpool.Pool) {
	router := mux.NewRouter()

	router.HandleFunc("/dash/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Dash Service is active"))
	})

	router.Handle("/dash/overview", Dashboard(pgxPool)).Methods("POST")
	router.Handle("/dash/notifications", Notifications()).Methods("POST")

	log.Println("Dash Service started on :4143")
	if err := http.ListenAndServe(":4143", router); err != nil {
		log.Fatalf("Dash Service failed: %v", err)
	}
}
