package web

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

func Home(flash, name string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Liar Game</title>
    <link rel="stylesheet" href="`+assetPath("/static/styles.css")+`"/>
  </head>
  <body>
    <main class="shell">
      <header class="hero">
        <span class="tag">Liar Game</span>
        <h1>One of you is lying.</h1>
        <p>Create a room, share the code, and find the liar before the liar finds the word.</p>
      </header>
`)
		if flash != "" {
			_, _ = io.WriteString(w, `      <div class="flash">`)
			_, _ = io.WriteString(w, templEscape(flash))
			_, _ = io.WriteString(w, "</div>\n")
		}
		_, _ = io.WriteString(w, `
      <section class="panel">
        <div>
          <h2>Create a room</h2>
          <p>Open a lobby and share the room code with your players.</p>
        </div>
        <button id="createRoom" class="primary">Create room</button>
        <div id="createResult" class="result"></div>
      </section>

      <section class="panel">
        <div>
          <h2>Join a room</h2>
          <p>Enter the room code from the host and your display name.</p>
        </div>
        <form id="joinForm" class="join-form">
          <input name="code" placeholder="Room code" autocomplete="off" required/>
          <input name="name" placeholder="Display name" autocomplete="name" value="`+templEscape(name)+`" required/>
          <button type="submit" class="secondary">Join room</button>
        </form>
        <div id="joinResult" class="result"></div>
      </section>

      <section class="panel">
        <h2>Open rooms</h2>
        <ul id="roomList" class="room-list"></ul>
      </section>
    </main>

    <script>
      const createBtn = document.getElementById("createRoom");
      const createResult = document.getElementById("createResult");
      const joinForm = document.getElementById("joinForm");
      const joinResult = document.getElementById("joinResult");
      const roomList = document.getElementById("roomList");

      createBtn.addEventListener("click", async () => {
        createResult.textContent = "Creating room...";
        const res = await fetch("/api/rooms", { method: "POST" });
        const data = await res.json();
        if (!res.ok) {
          createResult.textContent = data.error || "Failed to create room.";
          return;
        }
        createResult.textContent = "Room created. Code: " + data.room_code;
      });

      joinForm.addEventListener("submit", async (event) => {
        event.preventDefault();
        joinResult.textContent = "Joining room...";
        const code = joinForm.elements.code.value.trim();
        const name = joinForm.elements.name.value.trim();
        const res = await fetch("/api/rooms/" + encodeURIComponent(code) + "/join", {
          method: "POST",
          headers: { "Content-Type": "application/json" },
          body: JSON.stringify({ name })
        });
        const data = await res.json();
        if (!res.ok) {
          joinResult.textContent = data.error || "Failed to join room.";
          return;
        }
        sessionStorage.setItem("liarToken", data.token);
        joinResult.textContent = "Joined room " + data.room_code + " as " + data.player + ".";
      });

      function renderRooms(rooms) {
        roomList.innerHTML = "";
        for (const room of rooms || []) {
          const item = document.createElement("li");
          item.textContent = room.room_code + " - " + room.state + " (" + room.players + " players)";
          roomList.appendChild(item);
        }
      }

      const proto = location.protocol === "https:" ? "wss:" : "ws:";
      const socket = new WebSocket(proto + "//" + location.host + "/ws/home");
      socket.addEventListener("message", (event) => {
        const data = JSON.parse(event.data);
        renderRooms(data.rooms);
      });
    </script>
  </body>
</html>
`)
		return nil
	})
}

func templEscape(value string) string {
	escaped := ""
	for _, r := range value {
		switch r {
		case '&':
			escaped += "&amp;"
		case '<':
			escaped += "&lt;"
		case '>':
			escaped += "&gt;"
		case '"':
			escaped += "&quot;"
		default:
			escaped += string(r)
		}
	}
	return escaped
}
