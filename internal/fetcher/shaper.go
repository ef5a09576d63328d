// Package fetcher shapes and performs ad page requests.
package fetcher

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
)

// ErrStatus marks a fetch that completed with a non-success HTTP status.
var ErrStatus = errors.New("unexpected http status")

// StatusError carries the status code of a failed fetch.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrStatus, e.Code)
}

// Unwrap lets errors.Is match ErrStatus.
func (e *StatusError) Unwrap() error {
	return ErrStatus
}

// Slug is a category/subcategory path pair. The site resolves ads strictly by
// id, so any pair yields the same page.
type Slug struct {
	Category    string
	Subcategory string
}

// DefaultSlugs is the slug table of the site, keyed by top-level category.
var DefaultSlugs = map[string][]string{
	"compra-venta": {
		"celulares-lineas-accesorios", "reproductor-mp3-mp4-ipod", "reproductor-dvd-vcd-dvr",
		"televisor", "camara-foto-video", "aire-acondicionado", "consola-videojuego-juegos",
		"satelite", "electrodomesticos", "muebles-decoracion", "ropa-zapato-accesorios",
		"intercambio-regalo", "mascotas-animales", "divisas", "libros-revistas", "joyas-relojes",
		"antiguedades-coleccion", "implementos-deportivos", "arte", "otros",
	},
	"autos": {"carros", "motos", "bicicletas", "piezas-accesorios", "alquiler", "mecanico", "otros"},
	"vivienda": {
		"compra-venta", "permuta", "alquiler-a-cubanos", "alquiler-a-extranjeros", "casa-en-la-playa",
	},
	"empleos": {"ofertas-de-empleo", "busco-empleo"},
	"servicios": {
		"clases-cursos", "informatica-programacion", "peliculas-series-videos", "limpieza-domestico",
		"foto-video", "construccion-mantenimiento", "reparacion-electronica",
		"peluqueria-barberia-belleza", "restaurantes-gastronomia", "diseno-decoracion",
		"musica-animacion-shows", "relojero-joyero", "gimnasio-masaje-entrenador", "otros",
	},
	"computadoras": {
		"pc-de-escritorio", "laptop", "microprocesador", "monitor", "motherboard", "memoria-ram-flash",
		"disco-duro-interno-externo", "chasis-fuente", "tarjeta-de-video", "tarjeta-de-sonido-bocinas",
		"quemador-lector-dvd-cd", "backup-ups", "impresora-cartuchos", "modem-wifi-red",
		"webcam-microf-audifono", "teclado-mouse", "internet-email", "cd-dvd-virgen", "otros",
	},
}

// categoryOrder fixes iteration over DefaultSlugs so seeded shapers are reproducible.
var categoryOrder = []string{"compra-venta", "autos", "vivienda", "empleos", "servicios", "computadoras"}

// DefaultUserAgents are the client identifiers the site accepts.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows; U; MSIE 9.0; Windows NT 9.0; en-US)",
	"Mozilla/5.0 (compatible; MSIE 10.0; Macintosh; Intel Mac OS X 10_7_3; Trident/6.0)",
	"Mozilla/5.0 (compatible; MSIE 8.0; Windows NT 6.1; Trident/4.0; GTB7.4; InfoPath.2; SV1; .NET CLR 3.3.69573; WOW64; en-US)",
	"Opera/9.80 (X11; Linux i686; U; ru) Presto/2.8.131 Version/11.11",
	"Mozilla/5.0 (iPad; CPU OS 6_0 like Mac OS X) AppleWebKit/536.26 (KHTML, like Gecko) Version/6.0 Mobile/10A5355d Safari/8536.25",
}

// Shaper varies the request shape: which slug pair is used in the URL and
// which user agent is sent. It is safe for concurrent use.
type Shaper struct {
	baseURL    string
	slugs      []Slug
	userAgents []string

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewShaper builds a Shaper over the default slug table. An empty userAgents
// falls back to DefaultUserAgents.
func NewShaper(baseURL string, userAgents []string, rnd *rand.Rand) (*Shaper, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if len(userAgents) == 0 {
		userAgents = DefaultUserAgents
	}
	if rnd == nil {
		return nil, fmt.Errorf("random source is required")
	}
	slugs := make([]Slug, 0, 80)
	for _, cat := range categoryOrder {
		for _, sub := range DefaultSlugs[cat] {
			slugs = append(slugs, Slug{Category: cat, Subcategory: sub})
		}
	}
	return &Shaper{
		baseURL:    baseURL,
		slugs:      slugs,
		userAgents: append([]string(nil), userAgents...),
		rnd:        rnd,
	}, nil
}

// URL returns a page URL for id using a randomly chosen slug pair.
func (s *Shaper) URL(id int64) string {
	s.mu.Lock()
	slug := s.slugs[s.rnd.Intn(len(s.slugs))]
	s.mu.Unlock()
	return fmt.Sprintf("%s/%s/%s/%d.html", s.baseURL, slug.Category, slug.Subcategory, id)
}

// UserAgent returns a randomly chosen client identifier.
func (s *Shaper) UserAgent() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userAgents[s.rnd.Intn(len(s.userAgents))]
}
