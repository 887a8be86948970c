// Пакет pages — HTML-страницы шлюза: вход, домашняя страница,
// отказ в доступе, ошибка. Разметка в pages.templ, pages_templ.go
// генерируется командой templ generate.
package pages

// HomeData — данные домашней страницы.
type HomeData struct {
	Name    string
	Email   string
	Picture string
	Role    string
}

func displayName(d HomeData) string {
	if d.Name != "" {
		return d.Name
	}
	return d.Email
}
